package tasks

import "context"

// StartedMessage is printed once Start has brought the stack up.
const StartedMessage = "The stack is now up and running."

// Start brings the whole stack up. It stops the workers, runs
// generate-certificates, build, up, cache-clear, install and migrate, then
// starts the workers again and prints About. The first failing step aborts
// the sequence.
func (o *Orchestrator) Start(ctx context.Context) error {
	steps := []struct {
		name string
		run  func(context.Context) error
	}{
		{"worker:stop", o.WorkersStop},
		{"generate-certificates", func(ctx context.Context) error { return o.GenerateCertificates(ctx, false) }},
		{"build", o.Build},
		{"up", o.Up},
		{"cache-clear", o.CacheClear},
		{"install", o.Install},
		{"migrate", o.Migrate},
		{"worker:start", o.WorkersStart},
	}

	for _, step := range steps {
		o.logger.Debug("start step", "task", step.name)
		if err := step.run(ctx); err != nil {
			return err
		}
	}

	o.out.Success(StartedMessage)
	return o.About(ctx)
}
