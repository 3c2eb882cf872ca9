// ABOUTME: Service descriptor loading for the managed messaging service
// ABOUTME: Parses the bundled JSON resource identifying the deployment endpoint

package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
)

// Descriptor identifies one deployment of the managed messaging service.
// It is shipped alongside the application as a static JSON resource and
// consumed verbatim by the messaging client; the adapter only supplies
// the path.
type Descriptor struct {
	OrganizationID string `json:"organization_id"`
	DeploymentName string `json:"deployment_name"`
	ServiceURL     string `json:"service_url"`
}

// LoadDescriptor reads and parses the service descriptor at the given path.
// A missing file or malformed document is an error; no defaults are applied.
func LoadDescriptor(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading service descriptor: %w", err)
	}

	var desc Descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing service descriptor: %w", err)
	}

	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("validating service descriptor: %w", err)
	}

	return &desc, nil
}

// Validate checks the descriptor for required fields and a parseable endpoint.
func (d *Descriptor) Validate() error {
	if d.OrganizationID == "" {
		return fmt.Errorf("organization_id is required")
	}
	if d.DeploymentName == "" {
		return fmt.Errorf("deployment_name is required")
	}
	if d.ServiceURL == "" {
		return fmt.Errorf("service_url is required")
	}

	u, err := url.Parse(d.ServiceURL)
	if err != nil {
		return fmt.Errorf("service_url is not a valid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("service_url must be http or https, got %q", u.Scheme)
	}

	return nil
}
