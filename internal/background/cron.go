package background

import (
	"context"
	"strings"

	"github.com/robfig/cron/v3"

	"course-marketplace-backend/pkg/logger"
)

type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keyValueFields(keysAndValues))
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error(err, "cron: "+msg, keyValueFields(keysAndValues))
}

func keyValueFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if key, ok := keysAndValues[i].(string); ok {
			fields[key] = keysAndValues[i+1]
		}
	}
	return fields
}

type CronSpecs struct {
	ReconcileProgress string
	PruneSessions     string
}

// Cron turns cron expressions into unique jobs on the scheduler. The scheduler does the
// work so a slow run never stacks up behind the next tick.
type Cron struct {
	cron *cron.Cron
}

// NewCron registers the periodic jobs. An empty spec disables that job.
func NewCron(jobs *Jobs, specs CronSpecs) (*Cron, error) {
	c := cron.New(cron.WithLogger(cronLogger{}), cron.WithChain(cron.Recover(cronLogger{})))

	entries := []struct {
		spec string
		job  func() Job
	}{
		{specs.ReconcileProgress, func() Job { return jobs.ReconcileJob(0) }},
		{specs.PruneSessions, jobs.PruneJob},
	}

	for _, entry := range entries {
		spec := strings.TrimSpace(entry.spec)
		if spec == "" {
			continue
		}
		build := entry.job
		if _, err := c.AddFunc(spec, func() { jobs.submit(build()) }); err != nil {
			return nil, err
		}
	}

	return &Cron{cron: c}, nil
}

func (c *Cron) Start() {
	c.cron.Start()
}

// Stop halts the trigger loop. The context is done once no trigger is still submitting.
func (c *Cron) Stop() context.Context {
	return c.cron.Stop()
}

func (c *Cron) Entries() int {
	return len(c.cron.Entries())
}
