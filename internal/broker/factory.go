package broker

import (
	"fmt"

	"github.com/abdel7517/ragdocs/internal/logger"
	"github.com/abdel7517/ragdocs/internal/utils"
)

// FromEnv picks the progress broker implementation. "memory" only works when
// API and worker share a process; anything multi-process needs redis.
func FromEnv(log *logger.Logger) (Broker, error) {
	channelType := utils.GetEnv("CHANNEL_TYPE", "redis", log)
	switch channelType {
	case "redis":
		return NewRedisBroker(log)
	case "memory":
		return NewMemoryBroker(log), nil
	default:
		return nil, fmt.Errorf("unknown CHANNEL_TYPE %q (expected redis or memory)", channelType)
	}
}
