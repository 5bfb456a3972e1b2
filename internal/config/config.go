package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"devfirm/internal/workgen"
)

// Config models devfirm.yml.
type Config struct {
	Company struct {
		Name          string `yaml:"name"`
		Seed          int64  `yaml:"seed"`
		StartingMoney int    `yaml:"starting_money"`
	} `yaml:"company"`
	Simulation Simulation     `yaml:"simulation"`
	Workgen    workgen.Config `yaml:"workgen"`
}

// Simulation tunes the tick loop cadences. Zero values are filled from the
// defaults during validation so a partial file stays valid.
type Simulation struct {
	TicksPerWeek     uint64 `yaml:"ticks_per_week"`
	PMEvalEvery      uint64 `yaml:"pm_eval_every"`
	EventRollEvery   uint64 `yaml:"event_roll_every"`
	PayrollEvery     uint64 `yaml:"payroll_every"`
	MoraleDecayEvery uint64 `yaml:"morale_decay_every"`
	EventTTLTicks    uint64 `yaml:"event_ttl_ticks"`
	ProposalTTLTicks uint64 `yaml:"proposal_ttl_ticks"`
	AutoAssign       *bool  `yaml:"auto_assign"`
	MaxProposals     int    `yaml:"max_mission_proposals"`
}

// DefaultSimulation is the tuning applied when fields are left unset.
var DefaultSimulation = Simulation{
	TicksPerWeek:     10080,
	PMEvalEvery:      50,
	EventRollEvery:   120,
	PayrollEvery:     500,
	MoraleDecayEvery: 25,
	EventTTLTicks:    200,
	ProposalTTLTicks: 400,
	MaxProposals:     3,
}

// AutoAssignEnabled defaults to true when unset.
func (s Simulation) AutoAssignEnabled() bool {
	return s.AutoAssign == nil || *s.AutoAssign
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create one with devfirm init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate checks required fields and fills unset cadences from defaults.
func (c *Config) Validate() error {
	if c.Company.Name == "" {
		return fmt.Errorf("config.company.name is required")
	}
	if c.Company.StartingMoney < 0 {
		return fmt.Errorf("config.company.starting_money must not be negative")
	}
	s := &c.Simulation
	if s.TicksPerWeek == 0 {
		s.TicksPerWeek = DefaultSimulation.TicksPerWeek
	}
	if s.PMEvalEvery == 0 {
		s.PMEvalEvery = DefaultSimulation.PMEvalEvery
	}
	if s.EventRollEvery == 0 {
		s.EventRollEvery = DefaultSimulation.EventRollEvery
	}
	if s.PayrollEvery == 0 {
		s.PayrollEvery = DefaultSimulation.PayrollEvery
	}
	if s.MoraleDecayEvery == 0 {
		s.MoraleDecayEvery = DefaultSimulation.MoraleDecayEvery
	}
	if s.EventTTLTicks == 0 {
		s.EventTTLTicks = DefaultSimulation.EventTTLTicks
	}
	if s.ProposalTTLTicks == 0 {
		s.ProposalTTLTicks = DefaultSimulation.ProposalTTLTicks
	}
	if s.MaxProposals == 0 {
		s.MaxProposals = DefaultSimulation.MaxProposals
	}
	if s.MaxProposals < 0 {
		return fmt.Errorf("config.simulation.max_mission_proposals must not be negative")
	}
	for id, p := range c.Workgen.Overrides {
		if p == "" {
			return fmt.Errorf("workgen override for %s is empty", id)
		}
	}
	for role, p := range c.Workgen.Roles {
		if p == "" {
			return fmt.Errorf("workgen provider for role %s is empty", role)
		}
	}
	return nil
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "devfirm.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(companyName string) string {
	return fmt.Sprintf(defaultTemplate, companyName)
}

// Default returns the default Config struct for a company.
func Default(companyName string) *Config {
	cfg, err := FromYAML([]byte(GenerateDefault(companyName)))
	if err != nil {
		// The template is static; a parse failure is a programming error.
		panic(err)
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `company:
  name: %s
  seed: 1
  starting_money: 10000

simulation:
  ticks_per_week: 10080
  pm_eval_every: 50
  event_roll_every: 120
  payroll_every: 500
  morale_decay_every: 25
  event_ttl_ticks: 200
  proposal_ttl_ticks: 400
  auto_assign: true
  max_mission_proposals: 3

workgen:
  default: simulated
  roles: {}
  overrides: {}
`
