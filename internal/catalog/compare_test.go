package catalog

import (
	"strings"
	"testing"
)

func rowByLabel(t *testing.T, table CompareTable, label string) CompareRow {
	t.Helper()
	for _, r := range table.Rows {
		if r.Label == label {
			return r
		}
	}
	t.Fatalf("row %q not found", label)
	return CompareRow{}
}

func TestBuildCompareTable(t *testing.T) {
	c := New()
	table := BuildCompareTable(c.DiseasesByID([]int{1, 14}))

	if len(table.Headers) != 2 || table.Headers[0] != "苹果黑星病 (苹果)" {
		t.Errorf("headers = %v", table.Headers)
	}
	if len(table.Rows) != 10 {
		t.Errorf("expected 10 rows, got %d", len(table.Rows))
	}

	if got := rowByLabel(t, table, "防治方案数量").Values; got[0] != "2种" || got[1] != "1种" {
		t.Errorf("pesticide counts = %v", got)
	}
	if got := rowByLabel(t, table, "主要防治药剂").Values[0]; got != "苯醚甲环唑: 2000-3000倍液; 戊唑醇: 1500-2000倍液" {
		t.Errorf("main pesticides = %q", got)
	}
	if got := rowByLabel(t, table, "安全间隔期").Values[0]; got != "21天, 28天" {
		t.Errorf("safety intervals = %q", got)
	}
	if got := rowByLabel(t, table, "危害程度").Values[1]; got != "高危害" {
		t.Errorf("severity = %q", got)
	}
	for _, v := range rowByLabel(t, table, "典型症状").Values {
		if !strings.HasSuffix(v, "...") {
			t.Errorf("symptom preview should end with ellipsis: %q", v)
		}
	}
}

func TestBuildCompareTableDefaults(t *testing.T) {
	table := BuildCompareTable([]Disease{{ID: 1, Name: "a", Crop: "b", Symptoms: "短"}})

	if got := rowByLabel(t, table, "病原类型").Values[0]; got != "未知" {
		t.Errorf("pathogen type default = %q", got)
	}
	if got := rowByLabel(t, table, "识别准确率").Values[0]; got != "90%" {
		t.Errorf("accuracy default = %q", got)
	}
	if got := rowByLabel(t, table, "主要防治药剂").Values[0]; got != "无数据" {
		t.Errorf("pesticides default = %q", got)
	}
	if got := rowByLabel(t, table, "安全间隔期").Values[0]; got != "无数据" {
		t.Errorf("safety default = %q", got)
	}
	if got := rowByLabel(t, table, "典型症状").Values[0]; got != "短..." {
		t.Errorf("symptoms = %q", got)
	}
}
