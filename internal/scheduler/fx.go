package scheduler

import (
	"context"

	"go.uber.org/fx"

	appconfig "github.com/wecloud/backoffice/internal/config"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
	fx.Invoke(Run),
)

func ProvideConfig(cfg appconfig.Config) Config {
	return Config{
		RunInterval:       cfg.Scheduler.RunInterval,
		ReminderBatchSize: cfg.Scheduler.ReminderBatchSize,
		GenerateDay:       cfg.Scheduler.GenerateDay,
		DueDays:           cfg.Scheduler.DueDays,
		Notify:            cfg.Scheduler.Notify,
	}
}

func Run(lc fx.Lifecycle, sched *Scheduler) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go sched.RunForever(ctx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
