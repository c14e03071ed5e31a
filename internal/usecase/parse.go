package usecase

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/pkg/textx"
)

// ParseEvaluation turns a model answer into a normalized EvaluationResult.
// It tolerates code fences and prose around the JSON object, missing keys and
// out-of-range numbers. Non-numeric score or level values are errors so the
// caller can fall back to local scoring.
func ParseEvaluation(content string, p domain.ProfileConfig) (domain.EvaluationResult, error) {
	body := textx.ExtractJSONObject(textx.StripCodeFences(content))
	dec := json.NewDecoder(strings.NewReader(body))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return domain.EvaluationResult{}, fmt.Errorf("%w: decode: %v", domain.ErrSchemaInvalid, err)
	}
	obj, ok := doc.(map[string]any)
	if !ok {
		return domain.EvaluationResult{}, fmt.Errorf("%w: top-level value is not an object", domain.ErrSchemaInvalid)
	}

	score := 0.0
	if v, present := obj["score"]; present {
		f, err := toFloat(v)
		if err != nil {
			return domain.EvaluationResult{}, fmt.Errorf("%w: score: %v", domain.ErrSchemaInvalid, err)
		}
		score = f
	}

	status := domain.StatusRevision
	if s, ok := obj["status"].(string); ok {
		status = domain.ParseStatus(s)
	}

	explanation, _ := obj["explanation"].(string)
	explanation = textx.Truncate(explanation, domain.MaxExplanationChars)
	if strings.TrimSpace(explanation) == "" {
		explanation = fmt.Sprintf("Evaluation for %s: %s...", titleOrDefault(p.VacancyTitle), textx.Truncate(p.Summary, 80))
	}

	var match float64
	if v, present := obj["match_percentage"]; present && v != nil {
		f, err := toFloat(v)
		if err != nil {
			return domain.EvaluationResult{}, fmt.Errorf("%w: match_percentage: %v", domain.ErrSchemaInvalid, err)
		}
		match = clamp(f, 0, 100)
	} else {
		match = round1(clamp(score, 0, 100))
	}

	skills, err := parseSkills(obj["skills"])
	if err != nil {
		return domain.EvaluationResult{}, err
	}

	return domain.EvaluationResult{
		Score:           round1(clamp(score, 0, 100)),
		Status:          status,
		Explanation:     explanation,
		MatchPercentage: &match,
		Skills:          skills,
		Strategy:        domain.StrategyRemote,
	}, nil
}

func parseSkills(v any) ([]domain.SkillResult, error) {
	arr, ok := v.([]any)
	if !ok {
		return []domain.SkillResult{}, nil
	}
	if len(arr) > domain.MaxSkills {
		arr = arr[:domain.MaxSkills]
	}
	out := make([]domain.SkillResult, 0, len(arr))
	for _, item := range arr {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		rawName, present := m["skill"]
		if !present {
			rawName = m["name"]
		}
		name, ok := rawName.(string)
		if !ok {
			continue
		}
		name = textx.Truncate(strings.TrimSpace(name), domain.MaxSkillNameChars)
		if name == "" {
			continue
		}
		level := 0
		if lv, present := m["level"]; present && lv != nil {
			f, err := toFloat(lv)
			if err != nil {
				return nil, fmt.Errorf("%w: skill %q level: %v", domain.ErrSchemaInvalid, name, err)
			}
			level = int(clamp(math.Trunc(f), 0, 100))
		}
		var mp *float64
		if pv, present := m["match_percentage"]; present && pv != nil {
			f, err := toFloat(pv)
			if err != nil {
				return nil, fmt.Errorf("%w: skill %q match_percentage: %v", domain.ErrSchemaInvalid, name, err)
			}
			c := clamp(f, 0, 100)
			mp = &c
		}
		out = append(out, domain.SkillResult{Skill: name, Level: level, MatchPercentage: mp})
	}
	return out, nil
}

// toFloat accepts JSON numbers and numeric strings. Everything else,
// including null, NaN and infinities, is rejected.
func toFloat(v any) (float64, error) {
	var f float64
	switch x := v.(type) {
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, err
		}
		f = n
	case float64:
		f = x
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, fmt.Errorf("not a number: %q", x)
		}
		f = n
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("non-finite value")
	}
	return f, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func titleOrDefault(title string) string {
	if strings.TrimSpace(title) == "" {
		return "the vacancy"
	}
	return title
}
