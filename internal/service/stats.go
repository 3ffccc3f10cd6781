package service

import (
	"math"
	"sort"

	"prompt-runner/internal/model"
)

// TemplateStats 某个模板在已保存日志中的执行统计
type TemplateStats struct {
	ItemID      string  `json:"item_id"`
	ItemTitle   string  `json:"item_title"`
	N           int     `json:"n"`
	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	FailureRate float64 `json:"failure_rate"`
	CI95Low     float64 `json:"ci95_low"`
	CI95High    float64 `json:"ci95_high"`
}

type LogStats struct {
	Runs      int             `json:"runs"`
	Overall   TemplateStats   `json:"overall"`
	Templates []TemplateStats `json:"templates"`
}

// ComputeLogStats 汇总日志里每个模板的失败率（Wilson 95% 区间），按执行次数降序
func ComputeLogStats(logs []model.ExecutionLog) LogStats {
	out := LogStats{Runs: len(logs)}
	byID := map[string]*TemplateStats{}
	for _, l := range logs {
		for _, it := range l.Items {
			ts, ok := byID[it.ItemID]
			if !ok {
				ts = &TemplateStats{ItemID: it.ItemID, ItemTitle: it.ItemTitle}
				byID[it.ItemID] = ts
			}
			ts.N++
			out.Overall.N++
			if it.Success {
				ts.Succeeded++
				out.Overall.Succeeded++
			} else {
				ts.Failed++
				out.Overall.Failed++
			}
		}
	}

	fillRates(&out.Overall)
	out.Templates = make([]TemplateStats, 0, len(byID))
	for _, ts := range byID {
		fillRates(ts)
		out.Templates = append(out.Templates, *ts)
	}
	sort.Slice(out.Templates, func(i, j int) bool {
		if out.Templates[i].N != out.Templates[j].N {
			return out.Templates[i].N > out.Templates[j].N
		}
		return out.Templates[i].ItemID < out.Templates[j].ItemID
	})
	return out
}

func fillRates(ts *TemplateStats) {
	if ts.N == 0 {
		return
	}
	ts.FailureRate = float64(ts.Failed) / float64(ts.N)
	ts.CI95Low, ts.CI95High = wilsonCI(ts.Failed, ts.N, 1.96)
}

// Wilson score interval for proportion
func wilsonCI(k int, n int, z float64) (float64, float64) {
	if n == 0 {
		return 0, 0
	}
	p := float64(k) / float64(n)
	zz := z * z
	den := 1 + zz/float64(n)
	center := (p + zz/(2*float64(n))) / den
	half := (z / den) * math.Sqrt((p*(1-p)+zz/(4*float64(n)))/float64(n))
	low := math.Max(0, center-half)
	high := math.Min(1, center+half)
	return low, high
}
