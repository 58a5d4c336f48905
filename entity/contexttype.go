package entity

import (
	"github.com/tsinghua-fib-lab/signalet-oss/clock"
	"github.com/tsinghua-fib-lab/signalet-oss/utils/config"
)

type ITaskContext interface {
	Clock() *clock.Clock
	LaneManager() ILaneManager
	RoadManager() IRoadManager
	JunctionManager() IJunctionManager
	RuntimeConfig() *config.RuntimeConfig
}
