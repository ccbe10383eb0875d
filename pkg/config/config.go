package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// nameRe restricts endpoint names to characters that are safe as store keys.
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Endpoint describes one vCenter backend, loaded from a YAML file at startup
// and immutable afterwards.
type Endpoint struct {
	Name                string `yaml:"name"`
	Hostname            string `yaml:"hostname"`
	Port                int    `yaml:"port"`
	Username            string `yaml:"username"`
	Password            string `yaml:"password"`
	IgnoreSSLCertVerify bool   `yaml:"ignore_ssl_cert_verify"`
	ProxyHost           string `yaml:"proxy_host"`
	ProxyPort           int    `yaml:"proxy_port"`
	BaseVMFolder        string `yaml:"base_vm_folder"`
	Description         string `yaml:"description"`
}

// Endpoints is an ordered, name-keyed set of endpoint configurations. The
// order is fixed at load time and drives result ordering in merged listings.
type Endpoints struct {
	order  []string
	byName map[string]Endpoint
}

// LoadEndpoints reads every .yml/.yaml file in dir, one endpoint per file.
// Files are read in lexical order so that the endpoint iteration order is
// stable across restarts.
func LoadEndpoints(dir string) (*Endpoints, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read endpoint config dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext == ".yml" || ext == ".yaml" {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	eps := &Endpoints{byName: make(map[string]Endpoint, len(names))}
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read endpoint config %s: %w", path, err)
		}

		var ep Endpoint
		if err := yaml.Unmarshal(data, &ep); err != nil {
			return nil, fmt.Errorf("failed to parse endpoint config %s: %w", path, err)
		}
		if err := ep.validate(); err != nil {
			return nil, fmt.Errorf("invalid endpoint config %s: %w", path, err)
		}
		if _, dup := eps.byName[ep.Name]; dup {
			return nil, fmt.Errorf("duplicate endpoint name %q in %s", ep.Name, path)
		}

		eps.order = append(eps.order, ep.Name)
		eps.byName[ep.Name] = ep
	}

	return eps, nil
}

// NewEndpoints builds an endpoint set from already-parsed configs, keeping
// the given order. Used by tests.
func NewEndpoints(eps ...Endpoint) (*Endpoints, error) {
	set := &Endpoints{byName: make(map[string]Endpoint, len(eps))}
	for _, ep := range eps {
		if err := ep.validate(); err != nil {
			return nil, err
		}
		if _, dup := set.byName[ep.Name]; dup {
			return nil, fmt.Errorf("duplicate endpoint name %q", ep.Name)
		}
		set.order = append(set.order, ep.Name)
		set.byName[ep.Name] = ep
	}
	return set, nil
}

func (e Endpoint) validate() error {
	if e.Name == "" {
		return fmt.Errorf("endpoint name is required")
	}
	if !nameRe.MatchString(e.Name) {
		return fmt.Errorf("endpoint name %q may only contain alphanumerics, underscore and hyphen", e.Name)
	}
	if e.Hostname == "" {
		return fmt.Errorf("endpoint %q: hostname is required", e.Name)
	}
	if e.Port <= 0 || e.Port > 65535 {
		return fmt.Errorf("endpoint %q: port %d is out of range", e.Name, e.Port)
	}
	if e.Username == "" || e.Password == "" {
		return fmt.Errorf("endpoint %q: username and password are required", e.Name)
	}
	return nil
}

// Names returns endpoint names in load order.
func (e *Endpoints) Names() []string {
	names := make([]string, len(e.order))
	copy(names, e.order)
	return names
}

// Get returns the endpoint with the given name.
func (e *Endpoints) Get(name string) (Endpoint, bool) {
	ep, ok := e.byName[name]
	return ep, ok
}

// Has reports whether an endpoint with the given name is configured.
func (e *Endpoints) Has(name string) bool {
	_, ok := e.byName[name]
	return ok
}

// Len returns the number of configured endpoints.
func (e *Endpoints) Len() int {
	return len(e.order)
}

// Settings holds the service-wide tunables. Defaults match the documented
// contract; every field can be overridden by flag or VCB_* environment
// variable.
type Settings struct {
	ConnectTimeout time.Duration // per-endpoint connect/read timeout
	RetryInterval  time.Duration // sleep between reconnect attempts
	MaxRetries     int           // reconnect attempts before dead-marking
	PoolTimeout    time.Duration // idle timeout of the backend connection pool
	MaxWorkers     int           // concurrent fan-out workers
	LivenessTTL    time.Duration // TTL of alive/dead records
	PerEndpointCap int           // objects fetched per endpoint before merge
	CacheTTL       time.Duration // response cache TTL, 0 disables caching
}

// DefaultSettings returns the documented default tunables.
func DefaultSettings() Settings {
	return Settings{
		ConnectTimeout: 20 * time.Second,
		RetryInterval:  20 * time.Second,
		MaxRetries:     2,
		PoolTimeout:    3600 * time.Second,
		MaxWorkers:     10,
		LivenessTTL:    120 * time.Second,
		PerEndpointCap: 1000,
		CacheTTL:       60 * time.Second,
	}
}

// ApplyEnv overrides settings from VCB_* environment variables. Unparseable
// values are ignored and the current value kept.
func (s *Settings) ApplyEnv() {
	envDuration("VCB_CONNECT_TIMEOUT", &s.ConnectTimeout)
	envDuration("VCB_RETRY_INTERVAL", &s.RetryInterval)
	envInt("VCB_MAX_RETRIES", &s.MaxRetries)
	envDuration("VCB_POOL_TIMEOUT", &s.PoolTimeout)
	envInt("VCB_MAX_WORKERS", &s.MaxWorkers)
	envDuration("VCB_LIVENESS_TTL", &s.LivenessTTL)
	envInt("VCB_PER_ENDPOINT_CAP", &s.PerEndpointCap)
	envDuration("VCB_CACHE_TTL", &s.CacheTTL)
}

func envDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}

func envInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}
