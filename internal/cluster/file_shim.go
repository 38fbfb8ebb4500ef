package cluster

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/rs/zerolog/log"
)

// FileShim is a Directory that keeps hosts in a local JSON file.
// Used for local runs without a cluster.
type FileShim struct {
	filePath string
	mu       sync.Mutex
}

// Ensure FileShim implements Directory.
var _ Directory = (*FileShim)(nil)

// NewFileShim creates a file-backed directory. The file is created on first write.
func NewFileShim(filePath string) *FileShim {
	return &FileShim{filePath: filePath}
}

// List reads all hosts from the file.
func (f *FileShim) List(ctx context.Context) ([]domain.Host, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.read()
}

// Create appends a host, rejecting duplicate hostnames.
func (f *FileShim) Create(ctx context.Context, hostname string, status domain.HostStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hosts, err := f.read()
	if err != nil {
		return err
	}
	for _, h := range hosts {
		if h.Hostname == hostname {
			return fmt.Errorf("host %q: %w", hostname, domain.ErrAlreadyExists)
		}
	}
	hosts = append(hosts, domain.Host{Hostname: hostname, Status: status})
	if err := f.write(hosts); err != nil {
		return err
	}

	log.Info().Str("hostname", hostname).Str("status", string(status)).Str("file", f.filePath).Msg("[FileShim] Host added")
	return nil
}

// Update sets the maintenance status of an existing host.
func (f *FileShim) Update(ctx context.Context, hostname string, maintenance bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	hosts, err := f.read()
	if err != nil {
		return err
	}
	for i := range hosts {
		if hosts[i].Hostname == hostname {
			hosts[i].Status = domain.StatusFor(maintenance)
			if err := f.write(hosts); err != nil {
				return err
			}
			log.Info().Str("hostname", hostname).Bool("maintenance", maintenance).Msg("[FileShim] Host updated")
			return nil
		}
	}
	return fmt.Errorf("host %q: %w", hostname, domain.ErrNotFound)
}

func (f *FileShim) read() ([]domain.Host, error) {
	data, err := os.ReadFile(f.filePath)
	if errors.Is(err, os.ErrNotExist) {
		return []domain.Host{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading hosts file: %w", err)
	}

	hosts := []domain.Host{}
	if err := json.Unmarshal(data, &hosts); err != nil {
		return nil, fmt.Errorf("parsing hosts file: %w", err)
	}
	return hosts, nil
}

func (f *FileShim) write(hosts []domain.Host) error {
	data, err := json.MarshalIndent(hosts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling hosts: %w", err)
	}
	if err := os.WriteFile(f.filePath, data, 0644); err != nil {
		return fmt.Errorf("writing hosts file: %w", err)
	}
	return nil
}
