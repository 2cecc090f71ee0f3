package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"
)

// Posting is the schema.org JobPosting a page publishes as JSON-LD. Job boards embed it
// for search engines, and it is more reliable than the rendered text.
type Posting struct {
	Title    string   `json:"title,omitempty"`
	Company  string   `json:"company,omitempty"`
	Location string   `json:"location,omitempty"`
	Salary   string   `json:"salary,omitempty"`
	Skills   []string `json:"skills,omitempty"`
}

// salaryCurrencies are the codes the salary gate understands.
var salaryCurrencies = map[string]bool{
	"MYR": true, "SGD": true, "USD": true, "CNY": true, "RMB": true,
	"EUR": true, "GBP": true, "HKD": true, "IDR": true, "INR": true,
}

var salaryPeriods = map[string]string{
	"HOUR":  "hour",
	"MONTH": "month",
	"YEAR":  "year",
}

// ExtractPosting returns the first JobPosting found in the page's JSON-LD blocks, or nil.
func ExtractPosting(html string) *Posting {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	var found *Posting
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		raw := strings.TrimSpace(s.Text())
		if !gjson.Valid(raw) {
			return true
		}
		if node, ok := findJobPosting(gjson.Parse(raw)); ok {
			found = postingFrom(node)
			return false
		}
		return true
	})
	return found
}

// findJobPosting searches a top-level object, an array of objects, or an @graph.
func findJobPosting(v gjson.Result) (gjson.Result, bool) {
	if v.IsArray() {
		for _, item := range v.Array() {
			if node, ok := findJobPosting(item); ok {
				return node, true
			}
		}
		return gjson.Result{}, false
	}
	if isType(v.Get("@type"), "JobPosting") {
		return v, true
	}
	if graph := v.Get("@graph"); graph.Exists() {
		return findJobPosting(graph)
	}
	return gjson.Result{}, false
}

func isType(t gjson.Result, want string) bool {
	if t.IsArray() {
		for _, x := range t.Array() {
			if x.String() == want {
				return true
			}
		}
		return false
	}
	return t.String() == want
}

func postingFrom(node gjson.Result) *Posting {
	p := &Posting{
		Title:    cleanWhitespace(node.Get("title").String()),
		Company:  cleanWhitespace(node.Get("hiringOrganization.name").String()),
		Location: postingLocation(node),
		Salary:   postingSalary(node.Get("baseSalary")),
	}
	skills := node.Get("skills")
	switch {
	case skills.IsArray():
		for _, s := range skills.Array() {
			if v := strings.TrimSpace(s.String()); v != "" {
				p.Skills = append(p.Skills, v)
			}
		}
	case skills.String() != "":
		for _, s := range strings.Split(skills.String(), ",") {
			if v := strings.TrimSpace(s); v != "" {
				p.Skills = append(p.Skills, v)
			}
		}
	}
	return p
}

func postingLocation(node gjson.Result) string {
	loc := node.Get("jobLocation")
	if loc.IsArray() {
		loc = loc.Get("0")
	}
	addr := loc.Get("address")
	country := addr.Get("addressCountry")
	if country.IsObject() {
		country = country.Get("name")
	}

	var parts []string
	for _, v := range []string{addr.Get("addressLocality").String(), addr.Get("addressRegion").String(), country.String()} {
		if v = strings.TrimSpace(v); v != "" {
			parts = append(parts, v)
		}
	}
	if len(parts) == 0 && strings.EqualFold(node.Get("jobLocationType").String(), "TELECOMMUTE") {
		return "Remote"
	}
	return strings.Join(parts, ", ")
}

// postingSalary renders a MonetaryAmount as "USD 120000-160000 / year".
func postingSalary(base gjson.Result) string {
	if !base.Exists() {
		return ""
	}
	value := base.Get("value")
	lo, hi := value.Get("minValue"), value.Get("maxValue")
	if !lo.Exists() && !hi.Exists() {
		single := value
		if value.IsObject() {
			single = value.Get("value")
		}
		lo, hi = single, single
	}
	if !lo.Exists() {
		lo = hi
	}
	if !hi.Exists() {
		hi = lo
	}
	if lo.Float() <= 0 || hi.Float() < lo.Float() {
		return ""
	}

	out := fmt.Sprintf("%s-%s", trimFloat(lo.Float()), trimFloat(hi.Float()))
	if cur := strings.ToUpper(base.Get("currency").String()); salaryCurrencies[cur] {
		out = cur + " " + out
	}
	if period, ok := salaryPeriods[strings.ToUpper(value.Get("unitText").String())]; ok {
		out += " / " + period
	}
	return out
}

func trimFloat(f float64) string {
	return strings.TrimSuffix(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}

// String renders the posting for a prompt.
func (p *Posting) String() string {
	if p == nil {
		return ""
	}
	var sb strings.Builder
	line := func(label, v string) {
		if v != "" {
			fmt.Fprintf(&sb, "%s: %s\n", label, v)
		}
	}
	line("Title", p.Title)
	line("Company", p.Company)
	line("Location", p.Location)
	line("Salary", p.Salary)
	line("Skills", strings.Join(p.Skills, ", "))
	return strings.TrimSuffix(sb.String(), "\n")
}
