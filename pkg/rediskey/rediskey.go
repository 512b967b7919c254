package rediskey

import (
	"fmt"
	"strings"
)

const (
	RegistrationAddrPrefix = "gatekeeper:addr"
	SequencePrefix         = "seq"
)

func NamespaceKey(namespace, key string) string {
	return fmt.Sprintf("%s:%s", namespace, key)
}

// BuildRegistrationAddrKey returns "gatekeeper:addr:{addr}".
func BuildRegistrationAddrKey(addr string) string {
	return NamespaceKey(RegistrationAddrPrefix, strings.ToLower(strings.TrimSpace(addr)))
}

// BuildDailySequenceKey returns "seq:{prefix}:{yymmdd}".
func BuildDailySequenceKey(prefix, day string) string {
	return NamespaceKey(SequencePrefix, prefix+":"+day)
}
