package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Spok95/compliance-audits/internal/audits"
	"github.com/Spok95/compliance-audits/internal/models"
	"github.com/Spok95/compliance-audits/internal/scoring"
	"github.com/Spok95/compliance-audits/internal/seed"
)

// answerFile ответы для офлайн-подсчёта; ключ "секция.вопрос", нумерация с 1.
type answerFile struct {
	Answers map[string]answer `yaml:"answers"`
}

type answer struct {
	Bool    *bool    `yaml:"bool"`
	Numeric *float64 `yaml:"numeric"`
	Value   *string  `yaml:"value"`
	Notes   *string  `yaml:"notes"`
	Flagged bool     `yaml:"flagged"`
}

type scoreFlags struct {
	unanswered string
	critical   string
	strict     bool
}

func newScoreCmd() *cobra.Command {
	f := &scoreFlags{}
	cmd := &cobra.Command{
		Use:   "score <template.yaml> <answers.yaml>",
		Short: "Score answers against a template without a database",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := policyFrom(f)
			if err != nil {
				return err
			}
			tpl, err := loadScoringTemplate(args[0])
			if err != nil {
				return err
			}
			af, err := os.Open(args[1])
			if err != nil {
				return err
			}
			defer func() { _ = af.Close() }()

			sum, err := scoreAnswers(tpl, af, p)
			if err != nil {
				return fmt.Errorf("%s: %w", args[1], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(sum); err != nil {
				return err
			}
			if f.strict && !sum.Passed {
				return &exitErr{code: 2, msg: fmt.Sprintf("audit failed: %.2f%% (passing %.2f%%, critical failure %t)",
					sum.Percentage, sum.PassingScore, sum.CriticalFailure)}
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&f.unanswered, "unanswered", "", "Unanswered numeric/rating policy: ungraded, pass or fail")
	flags.StringVar(&f.critical, "critical", "", "Critical failure rule: flagged or flagged_or_critical")
	flags.BoolVar(&f.strict, "strict", false, "Exit with code 2 when the audit does not pass")
	return cmd
}

func policyFrom(f *scoreFlags) (scoring.Policy, error) {
	u, err := scoring.ParseUnansweredPolicy(f.unanswered)
	if err != nil {
		return scoring.Policy{}, err
	}
	c, err := scoring.ParseCriticalRule(f.critical)
	if err != nil {
		return scoring.Policy{}, err
	}
	return scoring.Policy{Unanswered: u, Critical: c}, nil
}

// loadScoringTemplate первый шаблон из файла; ID вопросов заменяются ссылками "секция.вопрос".
func loadScoringTemplate(path string) (*models.Template, error) {
	drafts, err := seed.LoadTemplateFile(path)
	if err != nil {
		return nil, err
	}
	if len(drafts) == 0 {
		return nil, fmt.Errorf("%s: no templates", path)
	}
	n := 0
	tpl, err := audits.BuildTemplate("offline", drafts[0], func() string {
		n++
		return "id-" + strconv.Itoa(n)
	})
	if err != nil {
		return nil, err
	}
	for si := range tpl.Sections {
		for qi := range tpl.Sections[si].Questions {
			tpl.Sections[si].Questions[qi].ID = ref(si, qi)
		}
	}
	return tpl, nil
}

func ref(section, question int) string {
	return strconv.Itoa(section+1) + "." + strconv.Itoa(question+1)
}

func scoreAnswers(tpl *models.Template, r io.Reader, p scoring.Policy) (scoring.Summary, error) {
	var af answerFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&af); err != nil && !errors.Is(err, io.EOF) {
		return scoring.Summary{}, err
	}

	keys := make([]string, 0, len(af.Answers))
	for k := range af.Answers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var responses []models.Response
	for _, k := range keys {
		a := af.Answers[k]
		q, ok := tpl.Question(strings.TrimSpace(k))
		if !ok {
			return scoring.Summary{}, fmt.Errorf("answer %q: no such question", k)
		}
		if a.Numeric != nil && (math.IsNaN(*a.Numeric) || math.IsInf(*a.Numeric, 0)) {
			return scoring.Summary{}, fmt.Errorf("answer %q: invalid numeric value", k)
		}
		out, err := scoring.Score(*q, scoring.Input{Value: a.Value, BoolValue: a.Bool, NumericValue: a.Numeric}, p)
		if err != nil {
			return scoring.Summary{}, fmt.Errorf("answer %q: %w", k, err)
		}
		responses = append(responses, models.Response{
			ID: k, QuestionID: q.ID,
			Value: a.Value, BoolValue: a.Bool, NumericValue: a.Numeric, Notes: a.Notes, Flagged: a.Flagged,
			Score: out.Score, MaxScore: out.MaxScore, Passed: out.Passed,
		})
	}
	return scoring.Aggregate(tpl, responses, p.Critical), nil
}
