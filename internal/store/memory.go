package store

import (
	"sync"
	"time"

	"github.com/AngelCh415/lp-report/internal/models"
)

const DefaultSection = "default"

// Snapshot es el dataset conciliado vigente.
type Snapshot struct {
	Records      []models.ConversionRecord
	Options      models.FilterOptions
	LoadedAt     time.Time
	Stale        bool // cargado solo de cache, falta revalidar
	UsingFixture bool
}

type MemoryStore struct {
	mu          sync.RWMutex
	snap        *Snapshot
	defaults    models.Assumptions
	assumptions map[string]models.Assumptions // por sección de reporte
}

func NewMemoryStore(defaults models.Assumptions) *MemoryStore {
	return &MemoryStore{
		defaults:    defaults.Clone(),
		assumptions: make(map[string]models.Assumptions),
	}
}

// Publish reemplaza el snapshot completo.
func (s *MemoryStore) Publish(snap Snapshot) {
	recs := make([]models.ConversionRecord, len(snap.Records))
	copy(recs, snap.Records)
	snap.Records = recs
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = &snap
}

// Snapshot devuelve una copia; ok=false si todavía no hay datos.
func (s *MemoryStore) Snapshot() (Snapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return Snapshot{}, false
	}
	out := *s.snap
	out.Records = make([]models.ConversionRecord, len(s.snap.Records))
	copy(out.Records, s.snap.Records)
	return out, true
}

// Fresh reporta si hay un snapshot revalidado contra la fuente.
func (s *MemoryStore) Fresh() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil && !s.snap.Stale
}

func (s *MemoryStore) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap != nil
}

func (s *MemoryStore) Assumptions(section string) models.Assumptions {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if a, ok := s.assumptions[sectionOr(section)]; ok {
		return a.Clone()
	}
	return s.defaults.Clone()
}

// UpdateAssumptions aplica fn sobre los supuestos de la sección bajo el
// mismo lock, así dos patches concurrentes no se pisan.
func (s *MemoryStore) UpdateAssumptions(section string, fn func(*models.Assumptions)) models.Assumptions {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := sectionOr(section)
	a, ok := s.assumptions[key]
	if ok {
		a = a.Clone()
	} else {
		a = s.defaults.Clone()
	}
	fn(&a)
	s.assumptions[key] = a
	return a.Clone()
}

func sectionOr(section string) string {
	if section == "" {
		return DefaultSection
	}
	return section
}
