package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/sandvault/sandvault/pkg/types"
)

// Config is the read-only policy and wiring input for the lease service.
type Config struct {
	AWS        AWSConfig        `mapstructure:"aws"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Allocation AllocationConfig `mapstructure:"allocation"`
	Scan       ScanConfig       `mapstructure:"scan"`
	OrgUnits   OrgUnitsConfig   `mapstructure:"org_units"`
	Tables     TablesConfig     `mapstructure:"tables"`
	SSO        SSOConfig        `mapstructure:"sso"`
	EventBus   string           `mapstructure:"event_bus"`
	LogLevel   string           `mapstructure:"log_level"`
}

// AWSConfig holds shared AWS client settings.
type AWSConfig struct {
	Region     string        `mapstructure:"region"`
	Profile    string        `mapstructure:"profile"`
	MaxRetries int           `mapstructure:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// PolicyConfig holds the global lease policy limits.
type PolicyConfig struct {
	MaxLeasesPerUser int           `mapstructure:"max_leases_per_user"`
	TerminalLeaseTTL time.Duration `mapstructure:"terminal_lease_ttl"`
	CleanupRetries   int           `mapstructure:"cleanup_retries"`
}

// AllocationConfig tunes the account allocator.
type AllocationConfig struct {
	PageSize int `mapstructure:"page_size"`
	Retries  int `mapstructure:"retries"`
}

// ScanConfig tunes the monitoring loop.
type ScanConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// OrgUnitsConfig maps each account container to its organizational unit ID.
type OrgUnitsConfig struct {
	Entry      string `mapstructure:"entry"`
	Available  string `mapstructure:"available"`
	Active     string `mapstructure:"active"`
	Frozen     string `mapstructure:"frozen"`
	CleanUp    string `mapstructure:"cleanup"`
	Quarantine string `mapstructure:"quarantine"`
	Exit       string `mapstructure:"exit"`
}

// ByStatus returns the container-to-OU mapping keyed by account status.
func (o OrgUnitsConfig) ByStatus() map[types.AccountStatus]string {
	return map[types.AccountStatus]string{
		types.AccountStatusEntry:      o.Entry,
		types.AccountStatusAvailable:  o.Available,
		types.AccountStatusActive:     o.Active,
		types.AccountStatusFrozen:     o.Frozen,
		types.AccountStatusCleanUp:    o.CleanUp,
		types.AccountStatusQuarantine: o.Quarantine,
		types.AccountStatusExit:       o.Exit,
	}
}

// TablesConfig names the DynamoDB tables.
type TablesConfig struct {
	Leases   string `mapstructure:"leases"`
	Accounts string `mapstructure:"accounts"`
}

// SSOConfig holds IAM Identity Center wiring.
type SSOConfig struct {
	InstanceArn             string `mapstructure:"instance_arn"`
	IdentityStoreID         string `mapstructure:"identity_store_id"`
	UserPermissionSetArn    string `mapstructure:"user_permission_set_arn"`
	ManagerGroupID          string `mapstructure:"manager_group_id"`
	ManagerPermissionSetArn string `mapstructure:"manager_permission_set_arn"`
	AdminGroupID            string `mapstructure:"admin_group_id"`
	AdminPermissionSetArn   string `mapstructure:"admin_permission_set_arn"`
}

// Load reads configuration from the given file (or the default search
// locations when empty), with SANDVAULT_* environment overrides.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("sandvault")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sandvault")
		v.AddConfigPath("/etc/sandvault")
	}

	v.SetEnvPrefix("SANDVAULT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// No config file is fine, defaults plus env carry it.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("aws.max_retries", 3)
	v.SetDefault("aws.timeout", 30*time.Second)

	v.SetDefault("policy.max_leases_per_user", 3)
	v.SetDefault("policy.terminal_lease_ttl", 30*24*time.Hour)
	v.SetDefault("policy.cleanup_retries", 3)

	v.SetDefault("allocation.page_size", 10)
	v.SetDefault("allocation.retries", 2)

	v.SetDefault("scan.interval", 30*time.Minute)

	v.SetDefault("tables.leases", "sandvault-leases")
	v.SetDefault("tables.accounts", "sandvault-accounts")

	v.SetDefault("event_bus", "sandvault")
	v.SetDefault("log_level", "info")
}

// Validate checks the parts of the configuration the service cannot limp
// along without.
func (c *Config) Validate() error {
	if c.Policy.MaxLeasesPerUser < 1 {
		return fmt.Errorf("policy.max_leases_per_user must be at least 1")
	}
	if c.Allocation.PageSize < 1 {
		return fmt.Errorf("allocation.page_size must be at least 1")
	}
	if c.Scan.Interval < time.Minute {
		return fmt.Errorf("scan.interval must be at least 1 minute")
	}
	for status, ou := range c.OrgUnits.ByStatus() {
		if ou == "" {
			return fmt.Errorf("org_units: missing organizational unit for %s", status)
		}
	}
	if c.Tables.Leases == "" || c.Tables.Accounts == "" {
		return fmt.Errorf("tables.leases and tables.accounts must be set")
	}
	return nil
}
