package cron

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Job is one unit of scheduled work. Name must be unique within a registry.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Registry holds jobs in registration order.
type Registry struct {
	jobs   []Job
	byName map[string]Job
}

// NewRegistry registers jobs in order, skipping nils.
func NewRegistry(jobs ...Job) (*Registry, error) {
	registry := &Registry{byName: map[string]Job{}}
	for _, job := range jobs {
		if err := registry.Register(job); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// Register adds a job. Nil jobs are ignored; blank or duplicate names fail.
func (r *Registry) Register(job Job) error {
	if job == nil {
		return nil
	}
	name := strings.TrimSpace(job.Name())
	if name == "" {
		return fmt.Errorf("cron job name required")
	}
	if r.byName == nil {
		r.byName = map[string]Job{}
	}
	if _, exists := r.byName[name]; exists {
		return fmt.Errorf("cron job %q already registered", name)
	}
	r.byName[name] = job
	r.jobs = append(r.jobs, job)
	return nil
}

// Jobs returns a copy of the registered jobs.
func (r *Registry) Jobs() []Job {
	jobs := make([]Job, len(r.jobs))
	copy(jobs, r.jobs)
	return jobs
}

// Names lists job names sorted alphabetically.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Only returns a registry restricted to the named jobs, keeping the original
// order. An empty list returns r unchanged.
func (r *Registry) Only(names ...string) (*Registry, error) {
	if len(names) == 0 {
		return r, nil
	}
	wanted := map[string]bool{}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if _, ok := r.byName[name]; !ok {
			return nil, fmt.Errorf("unknown cron job %q (known: %s)", name, strings.Join(r.Names(), ", "))
		}
		wanted[name] = true
	}
	subset := &Registry{byName: map[string]Job{}}
	for _, job := range r.jobs {
		if wanted[job.Name()] {
			if err := subset.Register(job); err != nil {
				return nil, err
			}
		}
	}
	return subset, nil
}
