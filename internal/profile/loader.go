package profile

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Load reads one profile YAML and returns it with the raw bytes.
// SSOT 핵심: KnownFields(true)로 오타/미사용 필드 즉시 실패
func Load(path string) (*Profile, []byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}

	var p Profile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true) // 알 수 없는 필드 발견 시 에러 반환
	if err := dec.Decode(&p); err != nil {
		return nil, nil, err
	}

	if err := Validate(&p); err != nil {
		return nil, data, err
	}

	return &p, data, nil
}

// Hash generates SHA256 hash from a profile (canonical JSON)
// 주의: map이 아닌 struct 직렬화 기반이라 순서가 결정적 (Weights map은
// encoding/json이 키 정렬을 보장)
func Hash(p *Profile) (string, error) {
	jsonBytes, err := json.Marshal(p)
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(jsonBytes)
	return hex.EncodeToString(sum[:]), nil
}

// NewDecisionStamp creates the audit stamp a run stores alongside its
// decision.
func NewDecisionStamp(p *Profile, yamlData []byte, gitCommit string) (*DecisionStamp, error) {
	hash, err := Hash(p)
	if err != nil {
		return nil, err
	}

	return &DecisionStamp{
		ProfileHash: hash,
		ProfileYAML: string(yamlData),
		ProfileID:   p.Meta.ProfileID,
		Version:     p.Meta.Version,
		GitCommit:   gitCommit,
		CreatedAt:   time.Now(),
	}, nil
}

// Registry holds every loaded profile keyed by profile id.
type Registry struct {
	profiles map[string]*Profile
	raw      map[string][]byte
	active   string
}

// LoadDir loads every *.yaml profile in dir and marks activeID as the
// registry's default. Duplicate profile ids across files fail loudly.
func LoadDir(dir, activeID string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile dir %s: %w", dir, err)
	}

	reg := &Registry{
		profiles: make(map[string]*Profile),
		raw:      make(map[string][]byte),
		active:   activeID,
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		p, data, err := Load(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load profile %s: %w", entry.Name(), err)
		}
		id := p.Meta.ProfileID
		if _, dup := reg.profiles[id]; dup {
			return nil, fmt.Errorf("duplicate profile id %q in %s", id, entry.Name())
		}
		reg.profiles[id] = p
		reg.raw[id] = data
	}

	if len(reg.profiles) == 0 {
		return nil, fmt.Errorf("no profiles found in %s", dir)
	}
	if _, ok := reg.profiles[activeID]; !ok {
		return nil, fmt.Errorf("active profile %q not found in %s", activeID, dir)
	}
	return reg, nil
}

// NewRegistry builds a registry from in-memory profiles. Used by the
// default wiring and tests; file-based setups go through LoadDir.
func NewRegistry(active string, profiles ...*Profile) (*Registry, error) {
	reg := &Registry{
		profiles: make(map[string]*Profile),
		raw:      make(map[string][]byte),
		active:   active,
	}
	for _, p := range profiles {
		if err := Validate(p); err != nil {
			return nil, fmt.Errorf("invalid profile %q: %w", p.Meta.ProfileID, err)
		}
		reg.profiles[p.Meta.ProfileID] = p
	}
	if _, ok := reg.profiles[active]; !ok {
		return nil, fmt.Errorf("active profile %q not registered", active)
	}
	return reg, nil
}

// Active returns the registry's default profile.
func (r *Registry) Active() *Profile {
	return r.profiles[r.active]
}

// Get returns a profile by id.
func (r *Registry) Get(id string) (*Profile, bool) {
	p, ok := r.profiles[id]
	return p, ok
}

// RawYAML returns the loaded YAML bytes for a profile, if it came from
// a file.
func (r *Registry) RawYAML(id string) []byte {
	return r.raw[id]
}

// IDs returns all profile ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
