package enrich

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/leadsnap/internal/company"
	"github.com/sells-group/leadsnap/pkg/zoominfo"
)

// Stage filter field names accepted in cascade YAML.
const (
	fieldName       = "name"
	fieldWebsite    = "website"
	fieldState      = "state"
	fieldIndustries = "industries"
)

// Stage is one company-search attempt: the subset of filters it sends.
type Stage struct {
	Name   string   `yaml:"name"`
	Fields []string `yaml:"fields"`
}

// Cascade is the ordered list of progressively looser search stages. The
// first stage that returns a hit wins.
type Cascade struct {
	Stages []Stage `yaml:"stages"`
}

// DefaultCascade returns the built-in stage order: everything we know, then
// name+state, then name alone.
func DefaultCascade() *Cascade {
	return &Cascade{Stages: []Stage{
		{Name: "exact", Fields: []string{fieldName, fieldWebsite, fieldState, fieldIndustries}},
		{Name: "name_state", Fields: []string{fieldName, fieldState}},
		{Name: "name_only", Fields: []string{fieldName}},
	}}
}

// LoadCascade reads a cascade from a YAML file. An empty path returns the
// built-in default.
func LoadCascade(path string) (*Cascade, error) {
	if path == "" {
		return DefaultCascade(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "enrich: read cascade %s", path)
	}

	var wrapper struct {
		Cascade Cascade `yaml:"cascade"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "enrich: parse cascade")
	}

	c := &wrapper.Cascade
	if len(c.Stages) == 0 {
		return nil, eris.Errorf("enrich: cascade %s defines no stages", path)
	}
	for _, s := range c.Stages {
		for _, f := range s.Fields {
			switch f {
			case fieldName, fieldWebsite, fieldState, fieldIndustries:
			default:
				return nil, eris.Errorf("enrich: cascade stage %q: unknown field %q", s.Name, f)
			}
		}
	}
	return c, nil
}

// input builds the vendor search filters a stage sends for a company.
// Fields the company has no value for come out empty and are omitted on
// the wire.
func (s Stage) input(c *company.Company) zoominfo.SearchCompanyInput {
	var in zoominfo.SearchCompanyInput
	for _, f := range s.Fields {
		switch f {
		case fieldName:
			in.CompanyName = c.Name
		case fieldWebsite:
			in.Website = c.Website
		case fieldState:
			in.State = c.State
		case fieldIndustries:
			in.IndustryKeywords = strings.Join(c.Industries, ", ")
		}
	}
	return in
}

// Resolve runs the stages in order and returns the vendor id of the first
// hit. Stages whose filters collapse to the previous attempt (the company
// lacks the extra fields) are skipped. Exhausting all stages returns
// zoominfo.ErrNotFound.
func (c *Cascade) Resolve(ctx context.Context, client zoominfo.Client, comp *company.Company) (int64, error) {
	log := zap.L().With(zap.Int64("company_id", comp.ID), zap.String("company", comp.Name))

	var prev *zoominfo.SearchCompanyInput
	for _, stage := range c.Stages {
		in := stage.input(comp)
		if in == (zoominfo.SearchCompanyInput{}) {
			continue
		}
		if prev != nil && in == *prev {
			continue
		}
		prev = &in

		results, err := client.SearchCompany(ctx, in)
		if err != nil {
			if eris.Is(err, zoominfo.ErrNotFound) {
				log.Debug("cascade stage missed", zap.String("stage", stage.Name))
				continue
			}
			return 0, eris.Wrapf(err, "enrich: search stage %s", stage.Name)
		}

		log.Info("cascade stage hit",
			zap.String("stage", stage.Name),
			zap.Int64("vendor_id", results[0].ID),
			zap.Int("results", len(results)),
		)
		return results[0].ID, nil
	}

	return 0, zoominfo.ErrNotFound
}
