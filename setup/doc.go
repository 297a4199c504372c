// Package setup builds a running logging system from a config.Config.
//
// The bootstrap runs in a fixed order:
//
//  1. Install the status logger at the configured level
//  2. Open every configured handler and fan them out
//  3. Put an async pipeline in front unless it is disabled
//  4. Build the logger
//  5. Register metrics and start the metrics endpoint
//  6. Schedule stats reports
//
// Example:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("ringlog.yaml")
//	if err != nil {
//	    return err
//	}
//	sys, err := setup.New(cfg)
//	if err != nil {
//	    return fmt.Errorf("failed to set up logging: %w", err)
//	}
//	defer sys.Shutdown(0)
//	sys.Logger.Info("ready")
package setup
