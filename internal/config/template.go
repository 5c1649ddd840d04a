// ABOUTME: Starter configuration written by "rail-scout init"
// ABOUTME: Lists every setting with its default value

package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// Template is a commented starter config.
const Template = `# rail-scout configuration

telegram:
  token: "${RAIL_SCOUT_TELEGRAM_TOKEN}"
  # allowed_chats: [123456789]

rzd:
  suggest_url: "https://ticket.rzd.ru/api/v1"
  pass_url: "https://pass.rzd.ru"
  language: "ru"
  retry_budget: 5
  poll_interval: "2s"
  poll_attempts: 5
  request_timeout: "30s"
  compartment_type: "купе"
  # user_agents: []

storage:
  driver: "badger" # badger, sqlite or memory
  # path: defaults to $XDG_DATA_HOME/rail-scout

server:
  http_addr: "127.0.0.1:8088"

logging:
  level: "info"
  format: "text"
`

// WriteTemplate writes Template to path unless a file already exists.
func WriteTemplate(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(Template), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
