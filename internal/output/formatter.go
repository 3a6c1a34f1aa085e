package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/matthewjhunter/plantdoc"
	"github.com/matthewjhunter/plantdoc/internal/catalog"
)

type Format string

const (
	FormatJSON  Format = "json"
	FormatText  Format = "text"
	FormatHuman Format = "human"
)

// ParseFormat validates a --format value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatText, FormatHuman:
		return Format(s), nil
	}
	return "", fmt.Errorf("unknown format: %s (use json, text or human)", s)
}

type Formatter struct {
	format Format
	out    io.Writer
	err    io.Writer
}

// NewFormatter creates a new output formatter
func NewFormatter(format Format) *Formatter {
	return &Formatter{
		format: format,
		out:    os.Stdout,
		err:    os.Stderr,
	}
}

// NewFormatterWithWriters creates a formatter with custom output writers for testability
func NewFormatterWithWriters(format Format, out, errW io.Writer) *Formatter {
	return &Formatter{
		format: format,
		out:    out,
		err:    errW,
	}
}

// render writes v as JSON, or hands the writer to the text or human
// renderer.
func (f *Formatter) render(v any, text, human func(w io.Writer)) error {
	switch f.format {
	case FormatJSON:
		enc := json.NewEncoder(f.out)
		enc.SetEscapeHTML(false)
		return enc.Encode(v)
	case FormatText:
		text(f.out)
		return nil
	case FormatHuman:
		human(f.out)
		return nil
	}
	return fmt.Errorf("unknown format: %s", f.format)
}

// OutputDiseaseList outputs a list of diseases
func (f *Formatter) OutputDiseaseList(diseases []plantdoc.Disease, labels []string) error {
	if diseases == nil {
		diseases = []plantdoc.Disease{}
	}
	return f.render(diseases, func(w io.Writer) {
		for _, d := range diseases {
			fmt.Fprintf(w, "id=%d\tname=%s\tcrop=%s\tseverity=%s\tpathogen=%s\n",
				d.ID, d.Name, d.Crop, d.Severity, d.Pathogen)
		}
	}, func(w io.Writer) {
		if len(labels) > 0 {
			fmt.Fprintf(w, "筛选: %s\n", strings.Join(labels, " · "))
		}
		if len(diseases) == 0 {
			fmt.Fprintln(w, "没有找到相关病害")
			return
		}
		fmt.Fprintf(w, "共 %d 种病害:\n\n", len(diseases))
		for _, d := range diseases {
			fmt.Fprintf(w, "%3d  %s %s  [%s]\n", d.ID, d.Crop, d.Name, catalog.SeverityLabel(d.Severity))
			if d.Pathogen != "" {
				fmt.Fprintf(w, "     病原: %s\n", d.Pathogen)
			}
		}
	})
}

// OutputDiseaseDetail outputs the detail view of one disease
func (f *Formatter) OutputDiseaseDetail(detail *plantdoc.DiseaseDetail) error {
	d := detail.Disease
	return f.render(detail, func(w io.Writer) {
		fmt.Fprintf(w, "id=%d\tname=%s\tcrop=%s\tseverity=%s\tfavorite=%t\tcompare=%t\n",
			d.ID, d.Name, d.Crop, d.Severity, detail.IsFavorite, detail.InCompare)
		for _, p := range d.Pesticides {
			fmt.Fprintf(w, "pesticide=%s\tconcentration=%s\tsafety=%s\n", p.Name, p.Concentration, p.Safety)
		}
	}, func(w io.Writer) {
		star := ""
		if detail.IsFavorite {
			star = " ★"
		}
		fmt.Fprintf(w, "%s %s%s\n", d.Crop, d.Name, star)
		fmt.Fprintln(w, strings.Repeat("=", 60))
		fmt.Fprintf(w, "危害程度: %s\n", detail.SeverityLabel)
		fmt.Fprintf(w, "病原菌:   %s\n", d.PathogenName())
		if d.PathogenType != "" {
			fmt.Fprintf(w, "病原类型: %s\n", d.PathogenType)
		}
		if d.RecognitionAccuracy != "" {
			fmt.Fprintf(w, "识别准确率: %s\n", d.RecognitionAccuracy)
		}
		if d.Symptoms != "" {
			fmt.Fprintf(w, "\n症状:\n  %s\n", d.Symptoms)
		}
		if len(detail.SymptomKeywords) > 0 {
			fmt.Fprintf(w, "  关键词: %s\n", strings.Join(detail.SymptomKeywords, "、"))
		}
		if d.Prevention != "" {
			fmt.Fprintf(w, "\n预防:\n  %s\n", d.Prevention)
		}
		if len(d.AgriculturalControl) > 0 {
			fmt.Fprintln(w, "\n农业防治:")
			for _, c := range d.AgriculturalControl {
				fmt.Fprintf(w, "  • %s\n", c)
			}
		}
		if len(d.Pesticides) > 0 {
			fmt.Fprintln(w, "\n化学防治:")
			for _, p := range d.Pesticides {
				fmt.Fprintf(w, "  • %s", p.Name)
				if p.Concentration != "" {
					fmt.Fprintf(w, " %s", p.Concentration)
				}
				if p.Safety != "" {
					fmt.Fprintf(w, " (%s)", p.Safety)
				}
				fmt.Fprintln(w)
			}
		}
		if len(detail.Related) > 0 {
			names := make([]string, len(detail.Related))
			for i, r := range detail.Related {
				names[i] = fmt.Sprintf("%s%s(#%d)", r.Crop, r.Name, r.ID)
			}
			fmt.Fprintf(w, "\n相关病害: %s\n", strings.Join(names, ", "))
		}
		if n := len(detail.Gallery.Images); n > 0 {
			fmt.Fprintf(w, "\n图库: %d 张图片", n)
			if detail.Gallery.CropOnly {
				fmt.Fprint(w, " (同作物)")
			}
			fmt.Fprintln(w)
		}
	})
}

// OutputGraph outputs a knowledge graph
func (f *Formatter) OutputGraph(g plantdoc.Graph) error {
	names := make(map[string]string, len(g.Nodes))
	for _, n := range g.Nodes {
		names[n.ID] = n.Name
	}
	return f.render(g, func(w io.Writer) {
		for _, n := range g.Nodes {
			fmt.Fprintf(w, "node=%s\tname=%s\ttype=%s\n", n.ID, n.Name, n.Type)
		}
		for _, l := range g.Links {
			fmt.Fprintf(w, "link=%s->%s\tlabel=%s\n", l.Source, l.Target, l.Label)
		}
	}, func(w io.Writer) {
		if len(g.Nodes) == 0 {
			fmt.Fprintln(w, "Empty graph")
			return
		}
		fmt.Fprintf(w, "%s (%d nodes, %d links)\n", g.Nodes[0].Name, len(g.Nodes), len(g.Links))
		for _, l := range g.Links {
			fmt.Fprintf(w, "  %s --%s--> %s\n", names[l.Source], l.Label, names[l.Target])
		}
	})
}

// OutputSuggestions outputs search suggestions
func (f *Formatter) OutputSuggestions(suggestions []plantdoc.Suggestion) error {
	if suggestions == nil {
		suggestions = []plantdoc.Suggestion{}
	}
	return f.render(suggestions, func(w io.Writer) {
		for _, s := range suggestions {
			fmt.Fprintf(w, "type=%s\ttext=%s\tdescription=%s\n", s.Type, s.Text, s.Description)
		}
	}, func(w io.Writer) {
		if len(suggestions) == 0 {
			fmt.Fprintln(w, "No suggestions")
			return
		}
		for _, s := range suggestions {
			fmt.Fprintf(w, "  %-12s %s\n", s.Text, s.Description)
		}
	})
}

// OutputStrings outputs a plain list such as search history
func (f *Formatter) OutputStrings(title string, items []string) error {
	if items == nil {
		items = []string{}
	}
	return f.render(items, func(w io.Writer) {
		for _, s := range items {
			fmt.Fprintln(w, s)
		}
	}, func(w io.Writer) {
		if len(items) == 0 {
			fmt.Fprintf(w, "%s: (empty)\n", title)
			return
		}
		fmt.Fprintf(w, "%s:\n", title)
		for i, s := range items {
			fmt.Fprintf(w, "  %d. %s\n", i+1, s)
		}
	})
}

// OutputCompareTable outputs the side-by-side comparison
func (f *Formatter) OutputCompareTable(t plantdoc.CompareTable) error {
	return f.render(t, func(w io.Writer) {
		fmt.Fprintf(w, "label\t%s\n", strings.Join(t.Headers, "\t"))
		for _, r := range t.Rows {
			fmt.Fprintf(w, "%s\t%s\n", r.Label, strings.Join(r.Values, "\t"))
		}
	}, func(w io.Writer) {
		fmt.Fprintf(w, "对比: %s\n", strings.Join(t.Headers, " | "))
		fmt.Fprintln(w, strings.Repeat("=", 70))
		for _, r := range t.Rows {
			fmt.Fprintf(w, "%s\n", r.Label)
			for i, v := range r.Values {
				fmt.Fprintf(w, "  [%d] %s\n", i+1, v)
			}
		}
	})
}

// OutputIDs outputs the favorite or compare id list
func (f *Formatter) OutputIDs(title string, ids []int) error {
	if ids == nil {
		ids = []int{}
	}
	return f.render(ids, func(w io.Writer) {
		for _, id := range ids {
			fmt.Fprintln(w, id)
		}
	}, func(w io.Writer) {
		fmt.Fprintf(w, "%s (%d): %s\n", title, len(ids), joinInts(ids))
	})
}

// OutputGalleryPage outputs one page of the image gallery
func (f *Formatter) OutputGalleryPage(p plantdoc.GalleryPage) error {
	return f.render(p, func(w io.Writer) {
		fmt.Fprintf(w, "page=%d\ttotal_pages=%d\ttotal=%d\n", p.Page, p.TotalPages, p.Total)
		for _, img := range p.Images {
			fmt.Fprintf(w, "id=%s\tcrop=%s\tdisease=%s\ttype=%s\tpreview=%s\n",
				img.ID, img.Crop, img.Disease, img.Type, img.Preview)
		}
	}, func(w io.Writer) {
		if p.Total == 0 {
			fmt.Fprintln(w, "没有符合条件的图片")
			return
		}
		fmt.Fprintf(w, "图库 第 %d/%d 页 (共 %d 张)\n\n", p.Page, p.TotalPages, p.Total)
		for _, img := range p.Images {
			label := img.Disease
			if img.IsHealthy {
				label = catalog.HealthyType
			}
			fmt.Fprintf(w, "  [%s] %s %s\n", img.ID, img.Crop, label)
		}
		fmt.Fprintf(w, "\n%s\n", pageBar(p.Pages, p.Page))
	})
}

// OutputImageView outputs one image opened in the viewer
func (f *Formatter) OutputImageView(v *plantdoc.ImageView) error {
	return f.render(v, func(w io.Writer) {
		fmt.Fprintf(w, "id=%s\tcrop=%s\tdisease=%s\tindex=%d\ttotal=%d\tdownload=%s\tpreview=%s\n",
			v.Image.ID, v.Image.Crop, v.Image.Disease, v.Index+1, v.Total, v.DownloadName, v.Image.Preview)
	}, func(w io.Writer) {
		fmt.Fprintf(w, "%s %s (%d/%d)\n", v.Image.Crop, v.Image.Disease, v.Index+1, v.Total)
		fmt.Fprintf(w, "预览: %s\n下载: %s\n", v.Image.Preview, v.DownloadName)
		strip := make([]string, len(v.Thumbnails))
		for i, img := range v.Thumbnails {
			if v.ThumbOffset+i == v.Index {
				strip[i] = "[" + img.ID + "]"
			} else {
				strip[i] = img.ID
			}
		}
		fmt.Fprintf(w, "缩略图: %s\n", strings.Join(strip, " "))
		if len(v.Similar) > 0 {
			ids := make([]string, len(v.Similar))
			for i, img := range v.Similar {
				ids[i] = img.ID
			}
			fmt.Fprintf(w, "相似图片: %s\n", strings.Join(ids, ", "))
		}
	})
}

// pageBar renders a page window, 0 entries become an ellipsis.
func pageBar(pages []int, current int) string {
	parts := make([]string, len(pages))
	for i, n := range pages {
		switch {
		case n == 0:
			parts[i] = "…"
		case n == current:
			parts[i] = fmt.Sprintf("[%d]", n)
		default:
			parts[i] = fmt.Sprint(n)
		}
	}
	return strings.Join(parts, " ")
}

// OutputStats outputs the dataset dashboard
func (f *Formatter) OutputStats(s plantdoc.Stats) error {
	return f.render(s, func(w io.Writer) {
		fmt.Fprintf(w, "diseases=%d\tcrops=%d\tpesticides=%d\timages=%d\taccuracy=%.1f\n",
			s.Diseases, s.Crops, s.Pesticides, s.Images, s.AverageAccuracy)
		for _, c := range s.ByCrop {
			fmt.Fprintf(w, "crop=%s\tcount=%d\n", c.Name, c.Count)
		}
	}, func(w io.Writer) {
		fmt.Fprintf(w, "病害 %d 种 · 作物 %d 种 · 药剂 %d 种 · 图片 %d 张\n",
			s.Diseases, s.Crops, s.Pesticides, s.Images)
		if s.AverageAccuracy > 0 {
			fmt.Fprintf(w, "平均识别准确率: %.1f%%\n", s.AverageAccuracy)
		}
		writeCounts(w, "按危害程度", s.BySeverity)
		writeCounts(w, "主要作物", s.TopCrops)
		writeCounts(w, "按病原类型", s.ByPathogenType)
		if s.LastUpdated != "" {
			fmt.Fprintf(w, "\n数据更新: %s\n", s.LastUpdated)
		}
	})
}

func writeCounts(w io.Writer, title string, counts []catalog.Count) {
	if len(counts) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s:\n", title)
	for _, c := range counts {
		fmt.Fprintf(w, "  %-10s %d\n", c.Name, c.Count)
	}
}

// OutputLoadResult outputs the result of a dataset reload
func (f *Formatter) OutputLoadResult(r plantdoc.LoadResult) error {
	return f.render(r, func(w io.Writer) {
		for _, s := range []catalog.SourceStatus{r.Diseases, r.Images} {
			fmt.Fprintf(w, "source=%s\tcount=%d\tnot_modified=%t\tfallback=%t\terror=%s\n",
				s.Source, s.Count, s.NotModified, s.Fallback, s.Error)
		}
	}, func(w io.Writer) {
		for _, s := range []catalog.SourceStatus{r.Diseases, r.Images} {
			switch {
			case s.Fallback:
				fmt.Fprintf(w, "⚠️  %s: using built-in data (%d records)", s.Source, s.Count)
				if s.Error != "" {
					fmt.Fprintf(w, ": %s", s.Error)
				}
				fmt.Fprintln(w)
			case s.NotModified:
				fmt.Fprintf(w, "%s: not modified (%d records)\n", s.Source, s.Count)
			default:
				fmt.Fprintf(w, "%s: loaded %d records\n", s.Source, s.Count)
			}
		}
	})
}

// OutputStatus outputs the dataset status
func (f *Formatter) OutputStatus(s plantdoc.DatasetStatus) error {
	return f.render(s, func(w io.Writer) {
		fmt.Fprintf(w, "diseases=%d\timages=%d\tdiseases_fallback=%t\timages_fallback=%t\tlast_updated=%s\n",
			s.Diseases, s.Images, s.DiseasesFallback, s.ImagesFallback, s.LastUpdated)
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Diseases: %d%s\n", s.Diseases, fallbackMark(s.DiseasesFallback))
		fmt.Fprintf(w, "Images:   %d%s\n", s.Images, fallbackMark(s.ImagesFallback))
		if s.LastUpdated != "" {
			fmt.Fprintf(w, "Updated:  %s\n", s.LastUpdated)
		}
		fmt.Fprintf(w, "Loaded:   %s\n", s.LoadedAt.Format("2006-01-02 15:04"))
	})
}

func fallbackMark(fallback bool) string {
	if fallback {
		return " (built-in)"
	}
	return ""
}

// OutputAlerts outputs a list of alerts
func (f *Formatter) OutputAlerts(alerts []plantdoc.Alert) error {
	if alerts == nil {
		alerts = []plantdoc.Alert{}
	}
	return f.render(alerts, func(w io.Writer) {
		for _, a := range alerts {
			fmt.Fprintf(w, "id=%d\ttitle=%s\turl=%s\tpublished=%s\tdiseases=%s\n",
				a.ID, a.Title, a.URL, formatTime(a.PublishedDate), joinInts(a.DiseaseIDs))
		}
	}, func(w io.Writer) {
		if len(alerts) == 0 {
			fmt.Fprintln(w, "No alerts")
			return
		}
		fmt.Fprintf(w, "Alerts (%d):\n\n", len(alerts))
		for _, a := range alerts {
			fmt.Fprintf(w, "ID: %d\n", a.ID)
			fmt.Fprintf(w, "Title: %s\n", a.Title)
			fmt.Fprintf(w, "URL: %s\n", a.URL)
			if a.PublishedDate != nil {
				fmt.Fprintf(w, "Published: %s\n", a.PublishedDate.Format("2006-01-02 15:04"))
			}
			if len(a.DiseaseIDs) > 0 {
				fmt.Fprintf(w, "Diseases: %s\n", joinInts(a.DiseaseIDs))
			}
			fmt.Fprintln(w, "---")
		}
	})
}

// OutputFeeds outputs the feed subscriptions
func (f *Formatter) OutputFeeds(feeds []plantdoc.Feed) error {
	if feeds == nil {
		feeds = []plantdoc.Feed{}
	}
	return f.render(feeds, func(w io.Writer) {
		for _, fd := range feeds {
			errText := ""
			if fd.LastError != nil {
				errText = *fd.LastError
			}
			fmt.Fprintf(w, "id=%d\turl=%s\ttitle=%s\tlast_fetched=%s\terror=%s\n",
				fd.ID, fd.URL, fd.Title, formatTime(fd.LastFetched), errText)
		}
	}, func(w io.Writer) {
		if len(feeds) == 0 {
			fmt.Fprintln(w, "No feeds")
			return
		}
		for _, fd := range feeds {
			fmt.Fprintf(w, "%3d  %s\n     %s\n", fd.ID, fd.Title, fd.URL)
			if fd.LastError != nil {
				fmt.Fprintf(w, "     ⚠️  %s\n", *fd.LastError)
			}
		}
	})
}

// OutputFetchStats outputs the result of an alert fetch
func (f *Formatter) OutputFetchStats(s plantdoc.FetchStats) error {
	return f.render(s, func(w io.Writer) {
		fmt.Fprintf(w, "feeds=%d\tstored=%d\ttagged=%d\tnot_modified=%d\terrors=%d\n",
			s.Feeds, s.Stored, s.Tagged, s.NotModified, s.Errors)
	}, func(w io.Writer) {
		fmt.Fprintf(w, "Fetched %d feeds, %d new alerts\n", s.Feeds, s.Stored)
		if s.Tagged > 0 {
			fmt.Fprintf(w, "🔔 %d alerts mention catalog diseases\n", s.Tagged)
		}
		if s.Errors > 0 {
			fmt.Fprintf(w, "⚠️  %d feeds failed\n", s.Errors)
		}
	})
}

// OutputUserData outputs a user profile
func (f *Formatter) OutputUserData(d plantdoc.UserData) error {
	return f.render(d, func(w io.Writer) {
		fmt.Fprintf(w, "fullName=%s\temail=%s\tregion=%s\tbirthDate=%s\tphone=%s\n",
			d.FullName, d.Email, d.Region, d.BirthDate, d.Phone)
	}, func(w io.Writer) {
		fmt.Fprintf(w, "姓名: %s\n邮箱: %s\n地区: %s\n生日: %s\n电话: %s\n",
			d.FullName, d.Email, d.Region, d.BirthDate, d.Phone)
		fmt.Fprintf(w, "识别次数: %d · 项目: %d\n", d.ScanCount, d.ProjectCount)
	})
}

// OutputSettings outputs user settings
func (f *Formatter) OutputSettings(s plantdoc.Settings) error {
	if s == nil {
		s = plantdoc.Settings{}
	}
	keys := sortedKeys(s)
	return f.render(s, func(w io.Writer) {
		for _, k := range keys {
			fmt.Fprintf(w, "%s=%v\n", k, s[k])
		}
	}, func(w io.Writer) {
		if len(keys) == 0 {
			fmt.Fprintln(w, "No settings")
			return
		}
		for _, k := range keys {
			fmt.Fprintf(w, "  %-16s %v\n", k, s[k])
		}
	})
}

// OutputAnswer outputs an advisor answer
func (f *Formatter) OutputAnswer(d plantdoc.Disease, question, answer string) error {
	v := map[string]any{"disease_id": d.ID, "question": question, "answer": answer}
	return f.render(v, func(w io.Writer) {
		fmt.Fprintln(w, answer)
	}, func(w io.Writer) {
		fmt.Fprintf(w, "🌱 %s%s\nQ: %s\n\n%s\n", d.Crop, d.Name, question, answer)
	})
}

// OutputSimilar outputs diseases ranked by similarity
func (f *Formatter) OutputSimilar(similar []plantdoc.SimilarDisease) error {
	if similar == nil {
		similar = []plantdoc.SimilarDisease{}
	}
	return f.render(similar, func(w io.Writer) {
		for _, s := range similar {
			fmt.Fprintf(w, "id=%d\tname=%s\tcrop=%s\tsimilarity=%.3f\n",
				s.Disease.ID, s.Disease.Name, s.Disease.Crop, s.Similarity)
		}
	}, func(w io.Writer) {
		if len(similar) == 0 {
			fmt.Fprintln(w, "No similar diseases")
			return
		}
		for _, s := range similar {
			fmt.Fprintf(w, "  %3.0f%%  %s%s (#%d)\n", s.Similarity*100, s.Disease.Crop, s.Disease.Name, s.Disease.ID)
		}
	})
}

// OutputTriage outputs ranked triage matches
func (f *Formatter) OutputTriage(matches []plantdoc.TriageMatch) error {
	if matches == nil {
		matches = []plantdoc.TriageMatch{}
	}
	return f.render(matches, func(w io.Writer) {
		for _, m := range matches {
			fmt.Fprintf(w, "id=%d\tname=%s\tcrop=%s\tconfidence=%.2f\treason=%s\n",
				m.DiseaseID, m.Name, m.Crop, m.Confidence, m.Reason)
		}
	}, func(w io.Writer) {
		if len(matches) == 0 {
			fmt.Fprintln(w, "No likely diseases")
			return
		}
		for i, m := range matches {
			fmt.Fprintf(w, "%d. %s%s (#%d) %.0f%%\n", i+1, m.Crop, m.Name, m.DiseaseID, m.Confidence*100)
			if m.Reason != "" {
				fmt.Fprintf(w, "   %s\n", m.Reason)
			}
		}
	})
}

// OutputMessage outputs a one-line result such as "added to favorites"
func (f *Formatter) OutputMessage(event, message string, fields map[string]any) error {
	v := map[string]any{"event": event}
	for k, val := range fields {
		v[k] = val
	}
	return f.render(v, func(w io.Writer) {
		parts := []string{"event=" + event}
		for _, k := range sortedKeys(fields) {
			parts = append(parts, fmt.Sprintf("%s=%v", k, fields[k]))
		}
		fmt.Fprintln(w, strings.Join(parts, "\t"))
	}, func(w io.Writer) {
		fmt.Fprintln(w, message)
	})
}

// Error outputs an error message to stderr
func (f *Formatter) Error(format string, args ...interface{}) {
	fmt.Fprintf(f.err, format+"\n", args...)
}

// Warning outputs a warning message to stderr
func (f *Formatter) Warning(format string, args ...interface{}) {
	fmt.Fprintf(f.err, "Warning: "+format+"\n", args...)
}

// formatTime formats a time pointer for output
func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinInts(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, ",")
}
