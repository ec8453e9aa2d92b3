package subscription

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// FileSource reads subscriptions from a JSON or YAML document on every call,
// so edits to the file apply to the next request.
type FileSource struct {
	path string
}

// NewFileSource creates a source backed by the document at path.
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

// Subscriptions loads and validates the document.
func (f *FileSource) Subscriptions(_ context.Context) ([]Subscription, error) {
	return LoadFile(f.path)
}

// LoadFile reads a subscription list from path. The document is a list of
// {name, url, tags} records; JSON is accepted since it is valid YAML.
func LoadFile(path string) ([]Subscription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read subscriptions file: %w", err)
	}

	subs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return subs, nil
}

// Parse decodes and validates a subscription document.
func Parse(data []byte) ([]Subscription, error) {
	var subs []Subscription
	if err := yaml.Unmarshal(data, &subs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSubscription, err)
	}

	if err := validateAll(subs); err != nil {
		return nil, err
	}

	// Normalize nil tag lists so callers never range over absence
	for i := range subs {
		if subs[i].Tags == nil {
			subs[i].Tags = []string{}
		}
	}

	return subs, nil
}
