package cli

import (
	"strconv"
	"strings"

	"github.com/calvinalkan/rmtree/internal/config"
)

func printConfig(o *IO, cfg config.Config) {
	o.Println("effective_cwd=" + cfg.EffectiveCwd)
	o.Println("database=" + cfg.DatabaseAbs)

	if cfg.CellarAbs != "" {
		o.Println("cellar=" + cfg.CellarAbs)
	}

	o.Println("log_level=" + cfg.LogLevel)
	o.Println("workers=" + strconv.Itoa(cfg.Workers))
	o.Println("lock_timeout=" + cfg.LockTimeoutDuration.String())

	if len(cfg.Ignore) > 0 {
		o.Println("ignore=" + strings.Join(cfg.Ignore, ","))
	}

	o.Println("")
	o.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" {
		o.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			o.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			o.Println("project_config=" + cfg.Sources.Project)
		}
	}
}
