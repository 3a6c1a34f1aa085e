package notify

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/matthewjhunter/plantdoc/internal/catalog"
	"github.com/matthewjhunter/plantdoc/internal/storage"
)

func testAlerts() []storage.Alert {
	return []storage.Alert{
		{ID: 1, Title: "番茄晚疫病发生预警", URL: "https://example.com/1", Description: "连续阴雨", DiseaseIDs: []int{15}},
		{ID: 2, Title: "玉米锈病简报", DiseaseIDs: []int{5}},
		{ID: 3, Title: "田间管理", DiseaseIDs: nil},
	}
}

func TestNotifyFollowed(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(true, &buf)

	count, err := n.NotifyFollowed(testAlerts(), []int{15}, catalog.FallbackDiseases().Diseases)
	if err != nil {
		t.Fatalf("NotifyFollowed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("count = %d, want 1", count)
	}
	out := buf.String()
	for _, want := range []string{"番茄 晚疫病", "番茄晚疫病发生预警", "https://example.com/1", "连续阴雨"} {
		if !strings.Contains(out, want) {
			t.Errorf("banner missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "玉米锈病简报") {
		t.Error("unfollowed alert should not be announced")
	}
}

func TestNotifyFollowedOnce(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(true, &buf)
	diseases := catalog.FallbackDiseases().Diseases

	if _, err := n.NotifyFollowed(testAlerts(), []int{15}, diseases); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	count, err := n.NotifyFollowed(testAlerts(), []int{15, 5}, diseases)
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 || !strings.Contains(buf.String(), "玉米锈病简报") {
		t.Errorf("second run should only announce the new match, count=%d:\n%s", count, buf.String())
	}
}

func TestNotifyDisabled(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(false, &buf)
	count, err := n.NotifyFollowed(testAlerts(), []int{15}, nil)
	if err != nil || count != 0 || buf.Len() != 0 {
		t.Errorf("disabled notifier wrote output: count=%d err=%v", count, err)
	}
}

func TestNotifyUnknownDisease(t *testing.T) {
	var buf bytes.Buffer
	n := NewNotifier(true, &buf)
	if _, err := n.NotifyFollowed(testAlerts(), []int{5}, nil); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "#5") {
		t.Errorf("expected id placeholder, got:\n%s", buf.String())
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("closed") }

func TestNotifyWriteError(t *testing.T) {
	n := NewNotifier(true, failingWriter{})
	if _, err := n.NotifyFollowed(testAlerts(), []int{15}, nil); err == nil {
		t.Error("expected write error")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("  连续阴雨天气  ", 4); got != "连续阴雨..." {
		t.Errorf("truncate = %q", got)
	}
}
