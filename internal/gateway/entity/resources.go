package entity

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	ramPattern      = regexp.MustCompile(`^([0-9]+)GB$`)
	capacityPattern = regexp.MustCompile(`^[0-9]+(GB|MB)$`)
)

// Resources is embedded in Service, Microservice, Function and Endpoint.
type Resources struct {
	CPU int    `bson:"cpu" json:"cpu"`
	RAM string `bson:"ram" json:"ram"`
}

type ResourcesPatch struct {
	CPU *int    `json:"cpu,omitempty"`
	RAM *string `json:"ram,omitempty"`
}

func (p *ResourcesPatch) fields(prefix string, out Fields) {
	if p == nil {
		return
	}
	if p.CPU != nil {
		out[prefix+".cpu"] = *p.CPU
	}
	if p.RAM != nil {
		out[prefix+".ram"] = strings.TrimSpace(*p.RAM)
	}
}

// Limits bounds the resources any entity may request.
type Limits struct {
	MinCPU   int
	MaxCPU   int
	MinRAMGB int
	MaxRAMGB int
}

func DefaultLimits() Limits {
	return Limits{MinCPU: 1, MaxCPU: 4, MinRAMGB: 1, MaxRAMGB: 8}
}

func (l Limits) ValidateResources(r Resources) error {
	if err := l.validateCPU(r.CPU); err != nil {
		return err
	}
	return l.validateRAM(r.RAM)
}

// ValidateResourcesPatch checks only the fields present in p.
func (l Limits) ValidateResourcesPatch(p *ResourcesPatch) error {
	if p == nil {
		return nil
	}
	if p.CPU != nil {
		if err := l.validateCPU(*p.CPU); err != nil {
			return err
		}
	}
	if p.RAM != nil {
		return l.validateRAM(*p.RAM)
	}
	return nil
}

func (l Limits) validateCPU(cpu int) error {
	if cpu < l.MinCPU || cpu > l.MaxCPU {
		return invalid("resources.cpu", "must be between %d and %d, got %d", l.MinCPU, l.MaxCPU, cpu)
	}
	return nil
}

func (l Limits) validateRAM(raw string) error {
	gb, err := ParseRAM(raw)
	if err != nil {
		return err
	}
	if gb < l.MinRAMGB || gb > l.MaxRAMGB {
		return invalid("resources.ram", "must be between %dGB and %dGB, got %q", l.MinRAMGB, l.MaxRAMGB, raw)
	}
	return nil
}

// ParseRAM returns the number of gigabytes in a value such as "2GB".
func ParseRAM(raw string) (int, error) {
	m := ramPattern.FindStringSubmatch(strings.TrimSpace(raw))
	if m == nil {
		return 0, invalid("resources.ram", "must look like <int>GB, got %q", raw)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, invalid("resources.ram", "%v", err)
	}
	return n, nil
}

// Storage is embedded in Function only.
type Storage struct {
	Capacity string `bson:"capacity" json:"capacity"`
	Source   string `bson:"source" json:"source"`
	Sink     string `bson:"sink" json:"sink"`
}

func (s Storage) Validate() error {
	if err := validateCapacity(s.Capacity); err != nil {
		return err
	}
	if strings.TrimSpace(s.Source) == "" {
		return invalid("storage.source", "is required")
	}
	if strings.TrimSpace(s.Sink) == "" {
		return invalid("storage.sink", "is required")
	}
	return nil
}

type StoragePatch struct {
	Capacity *string `json:"capacity,omitempty"`
	Source   *string `json:"source,omitempty"`
	Sink     *string `json:"sink,omitempty"`
}

func (p *StoragePatch) Validate() error {
	if p == nil {
		return nil
	}
	if p.Capacity != nil {
		if err := validateCapacity(*p.Capacity); err != nil {
			return err
		}
	}
	if p.Source != nil && strings.TrimSpace(*p.Source) == "" {
		return invalid("storage.source", "must not be empty")
	}
	if p.Sink != nil && strings.TrimSpace(*p.Sink) == "" {
		return invalid("storage.sink", "must not be empty")
	}
	return nil
}

func (p *StoragePatch) fields(prefix string, out Fields) {
	if p == nil {
		return
	}
	if p.Capacity != nil {
		out[prefix+".capacity"] = strings.TrimSpace(*p.Capacity)
	}
	if p.Source != nil {
		out[prefix+".source"] = strings.TrimSpace(*p.Source)
	}
	if p.Sink != nil {
		out[prefix+".sink"] = strings.TrimSpace(*p.Sink)
	}
}

func validateCapacity(raw string) error {
	if !capacityPattern.MatchString(strings.TrimSpace(raw)) {
		return invalid("storage.capacity", "must look like <int>GB or <int>MB, got %q", raw)
	}
	return nil
}
