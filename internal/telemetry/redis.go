// Package telemetry instruments infrastructure clients.
package telemetry

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// MonitorRedis adds OpenTelemetry tracing and metrics plus debug command logging.
func MonitorRedis(r redis.UniversalClient) error {
	if err := redisotel.InstrumentTracing(r); err != nil {
		return fmt.Errorf("instrument tracing: %w", err)
	}
	if err := redisotel.InstrumentMetrics(r); err != nil {
		return fmt.Errorf("instrument metrics: %w", err)
	}
	r.AddHook(RedisLog{})
	return nil
}

// RedisLog logs dials at info and commands at debug level.
type RedisLog struct{}

func (RedisLog) DialHook(hook redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := hook(ctx, network, addr)
		l := log.Ctx(ctx).Info()
		if err != nil {
			l = log.Ctx(ctx).Error().Err(err)
		}
		l.Str("network", network).Str("addr", addr).Msg("redis: dial")
		return conn, err
	}
}

func (RedisLog) ProcessHook(hook redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmd)
		log.Ctx(ctx).Debug().
			Str("cmd", cmd.Name()).
			Dur("dur", time.Since(start)).
			AnErr("error", ignoreNil(err)).
			Msg("redis: command")
		return err
	}
}

func (RedisLog) ProcessPipelineHook(hook redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		start := time.Now()
		err := hook(ctx, cmds)
		log.Ctx(ctx).Debug().
			Int("cmds", len(cmds)).
			Dur("dur", time.Since(start)).
			AnErr("error", ignoreNil(err)).
			Msg("redis: pipeline")
		return err
	}
}

func ignoreNil(err error) error {
	if err == redis.Nil {
		return nil
	}
	return err
}
