package server

import (
	"github.com/Daskott/safecall/colors"
	"github.com/Daskott/safecall/server/work"
)

const REPORT_STATS_JOB = "report_stats"

func (app *App) reportStats(map[string]interface{}) error {
	stats := app.workerPool.Stats()
	state := app.trigger.State()

	app.logg.Infof(colors.Blue("[stats] ")+"alert=%v jobs: enqueued=%v in-progress=%v successful=%v dead=%v",
		state.Phase, stats.Enqueued, stats.InProgress, stats.Successful, stats.Dead)
	return nil
}

func (app *App) registerJobHandlers() error {
	if err := app.notifier.Register(app.workerPool); err != nil {
		return err
	}
	return app.workerPool.Register(REPORT_STATS_JOB, app.reportStats)
}

func (app *App) enqueueJobs() error {
	schedule := app.config.Safecall.Cron.StatsSchedule
	if schedule == "" {
		return nil
	}

	return app.workerPool.PeriodicallyPerform(schedule, work.JobParams{
		Name:    REPORT_STATS_JOB,
		Handler: REPORT_STATS_JOB,
		Unique:  true,
		Args:    map[string]interface{}{},
	})
}
