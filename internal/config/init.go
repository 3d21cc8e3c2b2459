package config

import (
	"fmt"
	"os"
)

const defaultConfigYAML = `# PlantKeeper configuration

database:
  path: plantkeeper.db

reminders:
  # Daily sweep trigger, wall clock in the configured timezone.
  sweep_time: "08:00"
  timezone: UTC
  send_timeout: 15s
  max_concurrent_sends: 4
  # Extra attempts after a failed send, with linear backoff.
  send_retries: 2
  retry_backoff: linear
  retry_delay: 1s
  retry_max_delay: 30s

smtp:
  host: ${MAIL_HOST}
  port: 587
  username: ${MAIL_ID}
  password: ${MAIL_PASSWORD}
  from: ${MAIL_ID}

nats:
  enabled: false
  url: nats://127.0.0.1:4222
  subject: plantkeeper.reminders
  stream: PLANTKEEPER_REMINDERS

metrics:
  enabled: false
  listen: 127.0.0.1:9190

logging:
  level: info
  format: text
`

// WriteDefault writes a starter configuration file. Existing files are only
// overwritten with force.
func WriteDefault(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", path)
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
