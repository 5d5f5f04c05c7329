package modkit

import (
	"lakefill/internal/modkit/repokit"
	"lakefill/internal/platform/config"
	"lakefill/internal/platform/logger"
)

// Deps is the dependency set handed to every module constructor. Pure wiring,
// each module picks the fields it needs and ignores the rest
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
}
