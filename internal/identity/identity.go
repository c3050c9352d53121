package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/compute/metadata"
)

// Identity names the VM and the disk the procedures act on.
type Identity struct {
	// Project is the GCP project id.
	Project string
	// Instance is the VM name; backup snapshot names start with it.
	Instance string
	// Zone is the VM zone, e.g. "us-central1-a".
	Zone string
	// Disk is the disk to snapshot.
	Disk string
}

// Provider resolves the Identity of the current VM.
type Provider interface {
	Resolve(ctx context.Context) (*Identity, error)
}

// ErrIncomplete is returned when a required identity field stays empty.
var ErrIncomplete = errors.New("identity is incomplete")

// metadataClient is the subset of *metadata.Client the provider depends on.
type metadataClient interface {
	ProjectIDWithContext(ctx context.Context) (string, error)
	InstanceNameWithContext(ctx context.Context) (string, error)
	ZoneWithContext(ctx context.Context) (string, error)
}

// MetadataProvider asks the GCE metadata server. Fields present in its
// overrides are never looked up.
type MetadataProvider struct {
	// client talks to the metadata server.
	client metadataClient
	// overrides holds values pinned by configuration.
	overrides Identity
}

// NewMetadataProvider returns a provider backed by the default metadata client.
func NewMetadataProvider(overrides Identity) *MetadataProvider {
	return &MetadataProvider{
		client:    metadata.NewClient(nil),
		overrides: overrides,
	}
}

// Resolve fills every field from overrides or the metadata server.
// Disk defaults to the instance name, which is the boot disk name GCE assigns.
func (p *MetadataProvider) Resolve(ctx context.Context) (*Identity, error) {
	id := p.overrides

	lookups := []struct {
		name  string
		field *string
		fetch func(context.Context) (string, error)
	}{
		{"project", &id.Project, p.client.ProjectIDWithContext},
		{"instance", &id.Instance, p.client.InstanceNameWithContext},
		{"zone", &id.Zone, p.client.ZoneWithContext},
	}

	for _, l := range lookups {
		if *l.field != "" {
			continue
		}

		value, err := l.fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("query metadata %s: %w", l.name, err)
		}

		*l.field = strings.TrimSpace(value)
	}

	if id.Disk == "" {
		id.Disk = id.Instance
	}

	if err := id.Validate(); err != nil {
		return nil, err
	}

	return &id, nil
}

// Static is a Provider returning a fixed identity.
type Static Identity

// Resolve returns a copy of the static identity after validating it.
func (s Static) Resolve(context.Context) (*Identity, error) {
	id := Identity(s)
	if id.Disk == "" {
		id.Disk = id.Instance
	}

	if err := id.Validate(); err != nil {
		return nil, err
	}

	return &id, nil
}

// Validate reports which required field is empty.
func (id *Identity) Validate() error {
	switch {
	case id.Project == "":
		return fmt.Errorf("%w: project", ErrIncomplete)
	case id.Instance == "":
		return fmt.Errorf("%w: instance", ErrIncomplete)
	case id.Zone == "":
		return fmt.Errorf("%w: zone", ErrIncomplete)
	case id.Disk == "":
		return fmt.Errorf("%w: disk", ErrIncomplete)
	}

	return nil
}
