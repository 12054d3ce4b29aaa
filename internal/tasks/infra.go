package tasks

import (
	"context"
	"fmt"

	"github.com/shinji-kodama/devstack/internal/certs"
	"github.com/shinji-kodama/devstack/internal/project"
	"github.com/shinji-kodama/devstack/internal/stack"
)

// Build builds the images, builder included.
func (o *Orchestrator) Build(ctx context.Context) error {
	sub := append([]string{"build"}, o.stack.BuildArgs()...)
	return o.compose(ctx, sub, true, composePolicy)
}

// Up starts the stack in the background and removes orphan containers.
func (o *Orchestrator) Up(ctx context.Context) error {
	return o.compose(ctx, []string{"up", "--remove-orphans", "--detach"}, false, composePolicy)
}

// Stop stops the stack's containers.
func (o *Orchestrator) Stop(ctx context.Context) error {
	return o.compose(ctx, []string{"stop"}, false, composePolicy)
}

// Logs follows the stack logs until interrupted.
func (o *Orchestrator) Logs(ctx context.Context) error {
	return o.compose(ctx, []string{"logs", "-f", "--tail", "150"}, false, interactivePolicy)
}

// Ps lists the stack's containers.
func (o *Orchestrator) Ps(ctx context.Context) error {
	return o.compose(ctx, []string{"ps"}, false, composePolicy)
}

// Destroy removes the stack's containers, volumes, networks and local
// images, then deletes the generated certificates. Without force the user
// must confirm first; declining is not an error.
func (o *Orchestrator) Destroy(ctx context.Context, force bool) error {
	if !force {
		o.out.Warning("This will permanently remove all containers, volumes, networks... created for this project.")
		o.out.Note("You can use the --force option to avoid this confirmation.")

		confirmed, err := o.prompter.Confirm(ctx, "Are you sure?")
		if err != nil {
			return err
		}
		if !confirmed {
			o.out.Comment("Aborted.")
			return nil
		}
	}

	if err := o.compose(ctx, []string{"down", "--remove-orphans", "--volumes", "--rmi=local"}, true, composePolicy); err != nil {
		return err
	}

	removed, err := certs.RemoveAll(o.stack.CertDir())
	if err != nil {
		return err
	}
	o.logger.Debug("removed certificates", "count", removed, "dir", o.stack.CertDir())
	return nil
}

// certTarget returns the router certificate target.
func (o *Orchestrator) certTarget() certs.Target {
	return certs.Target{
		RootDir:      o.stack.RootDir(),
		CertDir:      o.stack.CertDir(),
		RootDomain:   o.stack.RootDomain(),
		ExtraDomains: o.stack.ExtraDomains(),
	}
}

// GenerateCertificates makes sure the router has a certificate for every
// project domain. force regenerates an existing one.
func (o *Orchestrator) GenerateCertificates(ctx context.Context, force bool) error {
	target := o.certTarget()
	present := o.certs.CurrentState(target) == certs.StatePresent

	if present && !force {
		o.out.Comment("SSL certificates already exists.")
		o.out.Note(`Run "devstack generate-certificates --force" to generate new certificates.`)
		return nil
	}
	if present {
		o.out.Comment(fmt.Sprintf("Removing existing certificates in %s/*.pem.", stack.CertDir))
	}

	outcome, err := o.certs.Generate(ctx, target, force)
	if err != nil {
		return err
	}
	if !outcome.Generated {
		return nil
	}

	switch outcome.Strategy {
	case certs.KindHelperTool:
		o.out.Success("Successfully generated SSL certificates with mkcert.")
	default:
		o.out.Success(fmt.Sprintf("Successfully generated self-signed SSL certificates in %s/*.pem.", stack.CertDir))
		o.out.Comment(`Consider installing mkcert to generate locally trusted SSL certificates and run "devstack generate-certificates --force".`)
	}
	if outcome.RestartAdvised {
		o.out.Note(`Please restart the infrastructure to use the new certificates with "devstack up" or "devstack start".`)
	}
	return nil
}

// WorkersStart starts the project's worker containers and makes them
// restart with the daemon.
func (o *Orchestrator) WorkersStart(ctx context.Context) error {
	n, err := o.workers.Start(ctx, o.stack.ProjectName())
	if err != nil {
		return err
	}
	o.logger.Debug("workers started", "count", n)
	return nil
}

// WorkersStop stops the project's worker containers and disables their
// restart policy.
func (o *Orchestrator) WorkersStop(ctx context.Context) error {
	n, err := o.workers.Stop(ctx, o.stack.ProjectName())
	if err != nil {
		return err
	}
	o.logger.Debug("workers stopped", "count", n)
	return nil
}

// requireBuilder checks that the builder overlay declares the builder
// service before a one-off container is requested from it.
func (o *Orchestrator) requireBuilder() error {
	return project.RequireService(o.stack.ComposePath(stack.BuilderComposeFile), stack.DefaultRunService)
}
