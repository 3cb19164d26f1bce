package booking

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vasu1409/G33-HealthCareManagementSystem-Repo/pkg/pagination"
)

// FileRepo keeps appointments in a single JSON array on disk. Every
// operation reads and rewrites the whole file under one mutex, and writes go
// through a temp file and rename so readers never see a partial file.
type FileRepo struct {
	mu   sync.Mutex
	path string
}

func NewFileRepo(path string) *FileRepo {
	return &FileRepo{path: path}
}

var _ Repository = (*FileRepo)(nil)

func (r *FileRepo) load() ([]*Appointment, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Appointment{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read appointments file: %w", err)
	}
	var items []*Appointment
	if len(data) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode appointments file: %w", err)
	}
	return items, nil
}

func (r *FileRepo) save(items []*Appointment) error {
	if items == nil {
		items = []*Appointment{}
	}
	data, err := json.MarshalIndent(items, "", "    ")
	if err != nil {
		return fmt.Errorf("encode appointments: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("replace appointments file: %w", err)
	}
	return nil
}

// modify runs fn over the loaded list and saves the result unless fn fails.
func (r *FileRepo) modify(fn func([]*Appointment) ([]*Appointment, error)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	items, err := r.load()
	if err != nil {
		return err
	}
	items, err = fn(items)
	if err != nil {
		return err
	}
	return r.save(items)
}

func (r *FileRepo) read() ([]*Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load()
}

func (r *FileRepo) Create(_ context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	return r.modify(func(items []*Appointment) ([]*Appointment, error) {
		return append(items, a), nil
	})
}

func (r *FileRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	items, err := r.read()
	if err != nil {
		return nil, err
	}
	for _, a := range items {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, ErrNotFound
}

func (r *FileRepo) Update(_ context.Context, a *Appointment) error {
	return r.modify(func(items []*Appointment) ([]*Appointment, error) {
		for i, existing := range items {
			if existing.ID == a.ID {
				a.UpdatedAt = time.Now().UTC()
				items[i] = a
				return items, nil
			}
		}
		return nil, ErrNotFound
	})
}

func (r *FileRepo) Delete(_ context.Context, id uuid.UUID) error {
	return r.modify(func(items []*Appointment) ([]*Appointment, error) {
		kept := items[:0]
		for _, a := range items {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		if len(kept) == len(items) {
			return nil, ErrNotFound
		}
		return kept, nil
	})
}

func (r *FileRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*Appointment, error) {
	items, err := r.read()
	if err != nil {
		return nil, err
	}
	var out []*Appointment
	for _, a := range items {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *FileRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	items, err := r.read()
	if err != nil {
		return nil, 0, err
	}
	sort.Slice(items, func(i, j int) bool { return slotKey(items[i]) > slotKey(items[j]) })
	start, end := pagination.Params{Limit: limit, Offset: offset}.Window(len(items))
	return items[start:end], len(items), nil
}
