package gen

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("gen", fx.Provide(NewNode))

// NewNode returns the snowflake node used to mint primary keys.
func NewNode() (*snowflake.Node, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		zap.L().Error("failed to init snowflake node", zap.Error(err))
		return nil, err
	}
	return node, nil
}
