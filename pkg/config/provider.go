package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Provider resolves tenant configuration by client id. Unknown ids resolve
// to the demo tenant so a misconfigured embed still gets a working widget.
type Provider interface {
	Fetch(ctx context.Context, clientID string) (*Tenant, error)
}

// FileProvider reads <Dir>/<clientID>.yaml.
type FileProvider struct {
	Dir string
}

var _ Provider = &FileProvider{}

func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: strings.TrimSpace(dir)}
}

func (p *FileProvider) Fetch(ctx context.Context, clientID string) (*Tenant, error) {
	if p == nil {
		return nil, errors.New("file tenant provider: nil")
	}
	clientID = strings.TrimSpace(clientID)
	if clientID == "" || clientID == DemoID || p.Dir == "" {
		return Demo(), nil
	}
	if strings.ContainsAny(clientID, `/\`) || clientID == ".." {
		return nil, errors.Errorf("file tenant provider: invalid client id %q", clientID)
	}
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(p.Dir, clientID+ext)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		t, err := Load(path)
		if err != nil {
			return nil, err
		}
		return t, nil
	}
	log.Warn().Str("client_id", clientID).Str("dir", p.Dir).Msg("tenant config not found, using demo tenant")
	return Demo(), nil
}

// StaticProvider serves tenants registered in memory.
type StaticProvider struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant
}

var _ Provider = &StaticProvider{}

func NewStaticProvider(tenants ...*Tenant) *StaticProvider {
	p := &StaticProvider{tenants: map[string]*Tenant{}}
	for _, t := range tenants {
		p.Put(t)
	}
	return p
}

func (p *StaticProvider) Put(t *Tenant) {
	if p == nil || t == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tenants[strings.TrimSpace(t.ID)] = t
}

func (p *StaticProvider) Fetch(_ context.Context, clientID string) (*Tenant, error) {
	if p == nil {
		return nil, errors.New("static tenant provider: nil")
	}
	p.mu.RLock()
	t, ok := p.tenants[strings.TrimSpace(clientID)]
	p.mu.RUnlock()
	if !ok {
		log.Warn().Str("client_id", clientID).Msg("tenant not registered, using demo tenant")
		return Demo(), nil
	}
	return t, nil
}
