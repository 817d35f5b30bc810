package catalog

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryRepository is a map-backed Repository for tests and local
// development.
type InMemoryRepository struct {
	mu            sync.RWMutex
	services      map[string]*Service
	availability  map[string]*Availability // key: wsID|svcID|day
	resources     map[string]*Resource
	qualified     map[string][]string // serviceID -> userIDs
	inUseServices map[string]bool
}

// NewInMemoryRepository creates an empty in-memory catalog.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		services:      make(map[string]*Service),
		availability:  make(map[string]*Availability),
		resources:     make(map[string]*Resource),
		qualified:     make(map[string][]string),
		inUseServices: make(map[string]bool),
	}
}

// MarkServiceInUse makes DeleteService fail for the given service, standing
// in for the live-booking check the Postgres repository performs.
func (r *InMemoryRepository) MarkServiceInUse(serviceID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inUseServices[serviceID] = true
}

// CreateService inserts a service.
func (r *InMemoryRepository) CreateService(_ context.Context, req *CreateServiceRequest) (*Service, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	svc := &Service{
		ID:              uuid.NewString(),
		WorkspaceID:     req.WorkspaceID,
		Name:            req.Name,
		Description:     req.Description,
		DurationMinutes: req.DurationMinutes,
		PriceCents:      req.PriceCents,
		ResourceType:    req.ResourceType,
		CreatedAt:       time.Now().UTC(),
	}
	r.services[svc.ID] = svc
	copied := *svc
	return &copied, nil
}

// GetService fetches one service scoped to the workspace.
func (r *InMemoryRepository) GetService(_ context.Context, workspaceID, id string) (*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	svc, ok := r.services[id]
	if !ok || svc.WorkspaceID != workspaceID {
		return nil, ErrServiceNotFound
	}
	copied := *svc
	return &copied, nil
}

// ListServices lists services for the workspace sorted by name.
func (r *InMemoryRepository) ListServices(_ context.Context, workspaceID string) ([]*Service, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Service{}
	for _, svc := range r.services {
		if svc.WorkspaceID == workspaceID {
			copied := *svc
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// DeleteService removes a service unless marked in use.
func (r *InMemoryRepository) DeleteService(_ context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	svc, ok := r.services[id]
	if !ok || svc.WorkspaceID != workspaceID {
		return ErrServiceNotFound
	}
	if r.inUseServices[id] {
		return ErrServiceInUse
	}
	delete(r.services, id)
	delete(r.qualified, id)
	return nil
}

func availabilityKey(workspaceID, serviceID string, day int) string {
	return workspaceID + "|" + serviceID + "|" + strconv.Itoa(day)
}

// UpsertAvailability replaces the template for one weekday.
func (r *InMemoryRepository) UpsertAvailability(_ context.Context, workspaceID string, req *UpsertAvailabilityRequest) (*Availability, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.services[req.ServiceID]; !ok || svc.WorkspaceID != workspaceID {
		return nil, ErrServiceNotFound
	}

	slots := req.Slots
	if slots == nil {
		slots = []TimeWindow{}
	}
	key := availabilityKey(workspaceID, req.ServiceID, req.DayOfWeek)
	av, ok := r.availability[key]
	if !ok {
		av = &Availability{
			ID:          uuid.NewString(),
			WorkspaceID: workspaceID,
			ServiceID:   req.ServiceID,
			DayOfWeek:   req.DayOfWeek,
		}
		r.availability[key] = av
	}
	av.Slots = append([]TimeWindow(nil), slots...)
	copied := *av
	return &copied, nil
}

// GetAvailability returns the template for one weekday, or nil when absent.
func (r *InMemoryRepository) GetAvailability(_ context.Context, workspaceID, serviceID string, dayOfWeek int) (*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	av, ok := r.availability[availabilityKey(workspaceID, serviceID, dayOfWeek)]
	if !ok {
		return nil, nil
	}
	copied := *av
	copied.Slots = append([]TimeWindow(nil), av.Slots...)
	return &copied, nil
}

// ListAvailability lists every weekday template for a service.
func (r *InMemoryRepository) ListAvailability(_ context.Context, workspaceID, serviceID string) ([]*Availability, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Availability{}
	for _, av := range r.availability {
		if av.WorkspaceID == workspaceID && av.ServiceID == serviceID {
			copied := *av
			copied.Slots = append([]TimeWindow(nil), av.Slots...)
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayOfWeek < out[j].DayOfWeek })
	return out, nil
}

// CreateResource inserts a resource.
func (r *InMemoryRepository) CreateResource(_ context.Context, req *CreateResourceRequest) (*Resource, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	res := &Resource{
		ID:          uuid.NewString(),
		WorkspaceID: req.WorkspaceID,
		Name:        req.Name,
		Type:        req.Type,
		CreatedAt:   time.Now().UTC(),
	}
	r.resources[res.ID] = res
	copied := *res
	return &copied, nil
}

// ListResources lists the workspace's resources in creation order.
func (r *InMemoryRepository) ListResources(ctx context.Context, workspaceID string) ([]*Resource, error) {
	return r.listResources(workspaceID, "")
}

// ListResourcesByType lists resources of one type in creation order.
func (r *InMemoryRepository) ListResourcesByType(_ context.Context, workspaceID, resourceType string) ([]*Resource, error) {
	return r.listResources(workspaceID, resourceType)
}

func (r *InMemoryRepository) listResources(workspaceID, resourceType string) ([]*Resource, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*Resource{}
	for _, res := range r.resources {
		if res.WorkspaceID != workspaceID {
			continue
		}
		if resourceType != "" && res.Type != resourceType {
			continue
		}
		copied := *res
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// DeleteResource removes a resource.
func (r *InMemoryRepository) DeleteResource(_ context.Context, workspaceID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.resources[id]
	if !ok || res.WorkspaceID != workspaceID {
		return ErrResourceNotFound
	}
	delete(r.resources, id)
	return nil
}

// SetQualifiedStaff replaces the qualified staff set for a service.
func (r *InMemoryRepository) SetQualifiedStaff(_ context.Context, workspaceID, serviceID string, userIDs []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if svc, ok := r.services[serviceID]; !ok || svc.WorkspaceID != workspaceID {
		return ErrServiceNotFound
	}
	r.qualified[serviceID] = append([]string(nil), userIDs...)
	return nil
}

// QualifiedStaffIDs returns the user IDs qualified for a service.
func (r *InMemoryRepository) QualifiedStaffIDs(_ context.Context, serviceID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]string(nil), r.qualified[serviceID]...)
	sort.Strings(ids)
	return ids, nil
}
