// Package dashboard implements the peerqd stats terminal UI: a
// termui-rendered table of live peer/queue stats, polled from the A14 HTTP
// diagnostics surface rather than talking to the registry in-process, so
// the dashboard can run against a remote daemon the same way an operator
// would.
package dashboard

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	ui "github.com/gizak/termui/v3"
	"github.com/gizak/termui/v3/widgets"
)

// PeerRow mirrors the JSON shape internal/handler/http's /peers endpoint
// returns.
type PeerRow struct {
	ID    string `json:"id"`
	Bytes int    `json:"bytes"`
	Count int    `json:"count"`
	Zone  string `json:"zone"`
	Swift bool   `json:"swift"`
}

// Config points the dashboard at a running daemon's diagnostics surface.
type Config struct {
	BaseURL      string
	PollInterval time.Duration
}

// Run initializes the terminal, polls BaseURL+"/peers" on PollInterval, and
// blocks until the user presses 'q' or Ctrl-C.
func Run(cfg Config) error {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	if err := ui.Init(); err != nil {
		return fmt.Errorf("dashboard: init terminal: %w", err)
	}
	defer ui.Close()

	table := widgets.NewTable()
	table.Title = "peerq live stats"
	table.Rows = [][]string{{"PEER", "BYTES", "COUNT", "ZONE", "SWIFT"}}
	table.TextStyle = ui.NewStyle(ui.ColorWhite)
	table.SetRect(0, 0, 100, 30)

	client := &http.Client{Timeout: 5 * time.Second}
	refresh := func() {
		rows, err := fetchPeers(client, cfg.BaseURL)
		table.Rows = [][]string{{"PEER", "BYTES", "COUNT", "ZONE", "SWIFT"}}
		if err != nil {
			table.Rows = append(table.Rows, []string{"error", err.Error(), "", "", ""})
		}
		for _, r := range rows {
			table.Rows = append(table.Rows, []string{
				r.ID, fmt.Sprint(r.Bytes), fmt.Sprint(r.Count), r.Zone, fmt.Sprint(r.Swift),
			})
		}
		ui.Render(table)
	}

	refresh()
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	events := ui.PollEvents()
	for {
		select {
		case e := <-events:
			switch e.ID {
			case "q", "<C-c>":
				return nil
			}
		case <-ticker.C:
			refresh()
		}
	}
}

func fetchPeers(client *http.Client, baseURL string) ([]PeerRow, error) {
	resp, err := client.Get(baseURL + "/peers")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dashboard: unexpected status %d", resp.StatusCode)
	}
	var rows []PeerRow
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, err
	}
	return rows, nil
}
