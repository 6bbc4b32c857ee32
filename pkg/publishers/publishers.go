package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// Supported publisher types.
	TypeHTTP      = "http"
	TypeSQS       = "sqs"
	TypeSNS       = "sns"
	TypeGCPPubSub = "gcp_pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID        string                    `json:"id" yaml:"id"`
	Type      string                    `json:"type" yaml:"type"`
	Enabled   *bool                     `json:"enabled" yaml:"enabled"`
	HTTP      *HTTPPublisherConfig      `json:"http" yaml:"http"`
	SQS       *SQSPublisherConfig       `json:"sqs" yaml:"sqs"`
	SNS       *SNSPublisherConfig       `json:"sns" yaml:"sns"`
	GCPPubSub *GCPPubSubPublisherConfig `json:"gcp_pubsub" yaml:"gcp_pubsub"`
}

// AWSAuthConfig optionally pins static credentials and a custom endpoint
// (e.g. localstack). Empty values fall back to the default AWS chain.
type AWSAuthConfig struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
	SessionToken    string `json:"session_token" yaml:"session_token"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL      string `json:"uri" yaml:"uri"`
	Region        string `json:"region" yaml:"region"`
	AWSAuthConfig `json:",inline" yaml:",inline"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN      string `json:"topic_arn" yaml:"topic_arn"`
	Region        string `json:"region" yaml:"region"`
	AWSAuthConfig `json:",inline" yaml:",inline"`
}

// GCPPubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type GCPPubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// ConfigRegistry holds the validated publisher entries loaded from a file.
// It is read-only after LoadRegistry returns.
type ConfigRegistry struct {
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry loads the publisher registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	file, err := decodeConfigFile(raw, filepath.Ext(path))
	if err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, 0, len(file.Publishers)),
		idx:        make(map[string]PublisherConfig, len(file.Publishers)),
	}
	for i, entry := range file.Publishers {
		cfg := sanitizePublisherConfig(entry)
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers = append(reg.publishers, cfg)
		reg.idx[cfg.ID] = cfg
	}
	return reg, nil
}

// decodeConfigFile picks the decoder by extension. Without a known extension
// YAML is tried first, then JSON, and the last decode error is kept.
func decodeConfigFile(data []byte, ext string) (configFile, error) {
	var decoders []func([]byte, any) error
	switch strings.ToLower(strings.TrimSpace(ext)) {
	case ".yaml", ".yml":
		decoders = append(decoders, yaml.Unmarshal)
	case ".json":
		decoders = append(decoders, json.Unmarshal)
	default:
		decoders = append(decoders, yaml.Unmarshal, json.Unmarshal)
	}

	var lastErr error
	for _, decode := range decoders {
		var file configFile
		if lastErr = decode(data, &file); lastErr == nil {
			return file, nil
		}
	}
	return configFile{}, fmt.Errorf("decode publishers file: %w", lastErr)
}

// sanitizePublisherConfig trims every field and fills defaults for the block
// matching the publisher type.
func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Enabled == nil {
		enabled := true
		cfg.Enabled = &enabled
	}

	switch cfg.Type {
	case TypeHTTP:
		if c := cfg.HTTP; c != nil {
			cfg.HTTP = &HTTPPublisherConfig{
				URL:            strings.TrimSpace(c.URL),
				Method:         strings.ToUpper(strings.TrimSpace(c.Method)),
				Headers:        sanitizeHeaders(c.Headers),
				TimeoutSeconds: c.TimeoutSeconds,
			}
			if cfg.HTTP.Method == "" {
				cfg.HTTP.Method = httpDefaultMethod
			}
			if cfg.HTTP.TimeoutSeconds <= 0 {
				cfg.HTTP.TimeoutSeconds = httpDefaultTimeoutSeconds
			}
		}
	case TypeSQS:
		if c := cfg.SQS; c != nil {
			cfg.SQS = &SQSPublisherConfig{
				QueueURL:      strings.TrimSpace(c.QueueURL),
				Region:        strings.TrimSpace(c.Region),
				AWSAuthConfig: sanitizeAWSAuth(c.AWSAuthConfig),
			}
		}
	case TypeSNS:
		if c := cfg.SNS; c != nil {
			cfg.SNS = &SNSPublisherConfig{
				TopicARN:      strings.TrimSpace(c.TopicARN),
				Region:        strings.TrimSpace(c.Region),
				AWSAuthConfig: sanitizeAWSAuth(c.AWSAuthConfig),
			}
		}
	case TypeGCPPubSub:
		if c := cfg.GCPPubSub; c != nil {
			cfg.GCPPubSub = &GCPPubSubPublisherConfig{
				ProjectID:       strings.TrimSpace(c.ProjectID),
				Topic:           strings.TrimSpace(c.Topic),
				CredentialsFile: strings.TrimSpace(c.CredentialsFile),
				Endpoint:        strings.TrimSpace(c.Endpoint),
			}
		}
	}
	return cfg
}

func sanitizeAWSAuth(a AWSAuthConfig) AWSAuthConfig {
	return AWSAuthConfig{
		Endpoint:        strings.TrimSpace(a.Endpoint),
		AccessKeyID:     strings.TrimSpace(a.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(a.SecretAccessKey),
		SessionToken:    strings.TrimSpace(a.SessionToken),
	}
}

// sanitizeHeaders drops entries whose trimmed key or value is empty.
func sanitizeHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key, val := strings.TrimSpace(k), strings.TrimSpace(v)
		if key != "" && val != "" {
			out[key] = val
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// requiredField names one mandatory setting and its value.
type requiredField struct {
	name  string
	value string
}

// validatePublisherConfig checks the type and the block that type requires.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	var (
		present bool
		fields  []requiredField
		auth    *AWSAuthConfig
	)
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeHTTP:
		if present = cfg.HTTP != nil; present {
			fields = []requiredField{{"http.url", cfg.HTTP.URL}}
		}
	case TypeSQS:
		if present = cfg.SQS != nil; present {
			fields = []requiredField{{"sqs.uri", cfg.SQS.QueueURL}, {"sqs.region", cfg.SQS.Region}}
			auth = &cfg.SQS.AWSAuthConfig
		}
	case TypeSNS:
		if present = cfg.SNS != nil; present {
			fields = []requiredField{{"sns.topic_arn", cfg.SNS.TopicARN}, {"sns.region", cfg.SNS.Region}}
			auth = &cfg.SNS.AWSAuthConfig
		}
	case TypeGCPPubSub:
		if present = cfg.GCPPubSub != nil; present {
			fields = []requiredField{{"gcp_pubsub.project_id", cfg.GCPPubSub.ProjectID}, {"gcp_pubsub.topic", cfg.GCPPubSub.Topic}}
		}
	default:
		return fmt.Errorf("unsupported type %q for publisher %q", cfg.Type, cfg.ID)
	}

	if !present {
		return fmt.Errorf("%s config required for publisher %q", cfg.Type, cfg.ID)
	}
	for _, f := range fields {
		if f.value == "" {
			return fmt.Errorf("%s is required for publisher %q", f.name, cfg.ID)
		}
	}
	if auth != nil && (auth.AccessKeyID == "") != (auth.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", cfg.Type, cfg.Type, cfg.ID)
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return PublisherConfig{}, false
	}

	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}

	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]PublisherConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
