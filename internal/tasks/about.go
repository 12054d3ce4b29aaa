package tasks

import (
	"context"
)

// AboutReport is the JSON form of About.
type AboutReport struct {
	URLs                []string `json:"urls"`
	CertHelperAvailable bool     `json:"certHelperAvailable"`
}

// About prints usage hints and the project's URLs.
//
// The static domains are always listed. Hosts the router reports for the
// project are appended, de-duplicated in first-seen order; a router that
// cannot be reached only costs those extra hosts.
func (o *Orchestrator) About(ctx context.Context) error {
	report := AboutReport{
		URLs:                o.urls(ctx),
		CertHelperAvailable: o.certHelper,
	}

	if o.json {
		return o.report.JSON(report)
	}

	o.out.Section("About this project")
	o.out.Comment("Run devstack to display all available commands.")
	o.out.Comment("Run devstack about to display this help.")
	o.out.Comment("Run devstack help [command] to display command help.")
	if !report.CertHelperAvailable {
		o.out.Comment("mkcert is not installed: certificates are self-signed.")
	}

	o.out.Section("Available URLs for this project:")
	o.out.Listing(report.URLs)
	return nil
}

// urls returns https URLs for the static domains and the discovered hosts.
func (o *Orchestrator) urls(ctx context.Context) []string {
	hosts := o.stack.Domains()

	discovered, err := o.router.Hosts(ctx, o.stack.ProjectName())
	if err != nil {
		o.logger.Debug("router discovery failed, listing configured domains only", "error", err)
	} else {
		hosts = append(hosts, discovered...)
	}

	seen := make(map[string]bool, len(hosts))
	urls := make([]string, 0, len(hosts))
	for _, h := range hosts {
		if seen[h] {
			continue
		}
		seen[h] = true
		urls = append(urls, "https://"+h)
	}
	return urls
}
