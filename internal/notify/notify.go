package notify

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

const summaryRunes = 200

type Notifier struct {
	enabled bool
	out     io.Writer

	mu   sync.Mutex
	sent map[int64]bool
}

// NewNotifier creates a notifier writing banners to out.
func NewNotifier(enabled bool, out io.Writer) *Notifier {
	return &Notifier{
		enabled: enabled,
		out:     out,
		sent:    make(map[int64]bool),
	}
}

// NotifyFollowed writes a banner for every alert tagged with one of the
// favorite disease ids. An alert is announced at most once per notifier.
// It returns the number of banners written.
func (n *Notifier) NotifyFollowed(alerts []storage.Alert, favorites []int, diseases []catalog.Disease) (int, error) {
	if !n.enabled || len(alerts) == 0 || len(favorites) == 0 {
		return 0, nil
	}

	followed := make(map[int]bool, len(favorites))
	for _, id := range favorites {
		followed[id] = true
	}
	names := make(map[int]string, len(diseases))
	for _, d := range diseases {
		names[d.ID] = d.Crop + " " + d.ShortName()
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	count := 0
	for _, alert := range alerts {
		if n.sent[alert.ID] {
			continue
		}
		var matched []string
		for _, id := range alert.DiseaseIDs {
			if followed[id] {
				name := names[id]
				if name == "" {
					name = fmt.Sprintf("#%d", id)
				}
				matched = append(matched, name)
			}
		}
		if len(matched) == 0 {
			continue
		}
		if err := n.writeBanner(alert, matched); err != nil {
			return count, fmt.Errorf("failed to send notification: %w", err)
		}
		n.sent[alert.ID] = true
		count++
	}
	return count, nil
}

func (n *Notifier) writeBanner(alert storage.Alert, diseases []string) error {
	var b strings.Builder
	b.WriteString("╔════════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "║ 🔔 病害预警 → %s\n", strings.Join(diseases, "、"))
	b.WriteString("╠════════════════════════════════════════════════════════════════════════\n")
	fmt.Fprintf(&b, "%s\n", alert.Title)
	if alert.URL != "" {
		fmt.Fprintf(&b, "\n%s\n", alert.URL)
	}
	if summary := truncate(alert.Description, summaryRunes); summary != "" {
		fmt.Fprintf(&b, "\n%s\n", summary)
	}
	b.WriteString("╚════════════════════════════════════════════════════════════════════════\n")
	_, err := io.WriteString(n.out, b.String())
	return err
}

// truncate truncates a string to maxLen runes
func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
