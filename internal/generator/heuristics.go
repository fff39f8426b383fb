package generator

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/Lumos-Labs-HQ/flashseed/internal/catalog"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	firstNames = []string{"John", "Jane", "Alice", "Bob", "Charlie", "Diana", "Eve", "Frank", "Grace", "Henry"}
	lastNames  = []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez"}
	domains    = []string{"example.com", "test.com", "demo.com", "mail.com"}
	streets    = []string{"Main", "Oak", "Pine", "Maple", "Cedar", "Elm", "Lake", "Hill"}
	cities     = []string{"Springfield", "Riverside", "Franklin", "Greenville", "Madison", "Georgetown", "Salem", "Fairview"}
	companyA   = []string{"tech", "data", "cloud", "web", "digital", "blue", "north", "bright"}
	companyB   = []string{"systems", "solutions", "works", "labs", "minds", "corp", "group", "soft"}
	adjectives = []string{"compact", "wireless", "premium", "portable", "classic", "smart", "ergonomic", "durable"}
	products   = []string{"laptop", "mouse", "keyboard", "monitor", "tablet", "smartphone", "printer", "router"}
	categories = []string{"Electronics", "Books", "Clothing", "Home", "Sports", "Toys", "Garden", "Automotive"}
	statuses   = []string{"active", "inactive", "pending", "completed", "cancelled"}
	words      = []string{"alpha", "beta", "gamma", "delta", "epsilon", "zeta", "eta", "theta"}

	titles = []string{
		"Getting Started with Go",
		"Understanding Databases",
		"Web Development Best Practices",
		"Introduction to APIs",
		"Modern Software Architecture",
		"Cloud Computing Basics",
		"Data Structures and Algorithms",
		"Machine Learning Fundamentals",
	}
	sentences = []string{
		"This is a sample text generated for testing purposes.",
		"Lorem ipsum dolor sit amet, consectetur adipiscing elit.",
		"The quick brown fox jumps over the lazy dog.",
		"Software development requires careful planning and execution.",
		"Database design is crucial for application performance.",
	}
)

// generated dates fall in a fixed window so seeded runs are reproducible
var (
	windowStart = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	windowEnd   = time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)
)

type genFunc func(gc *GenerationContext, col catalog.Column) interface{}

// heuristic pairs a column-name predicate with a synthesizer. accepts guards
// against producing a value the declared type cannot hold.
type heuristic struct {
	tag     string
	match   func(name string) bool
	accepts func(t catalog.ColumnType) bool
	gen     genFunc
}

// heuristics are evaluated in order, first match wins.
var heuristics = []heuristic{
	{"name", isPersonName, textual, genName},
	{"email", containsAny("email", "correo"), textual, genEmail},
	{"phone", containsAny("phone", "telefono", "mobile"), textual, genPhone},
	{"address", containsAny("address", "direccion", "street"), textual, genAddress},
	{"city", containsAny("city", "ciudad", "town"), textual, pick(cities)},
	{"company", containsAny("company", "empresa", "organization", "employer"), textual, genCompany},
	{"product", containsAny("product", "producto"), textual, genProduct},
	{"description", containsAny("desc", "content", "title", "summary", "bio"), textual, genDescription},
	{"code", containsAny("code", "codigo", "sku"), textual, genCode},
	{"price", containsAny("price", "precio", "cost", "amount", "salary", "fee"), numberOrText, genPrice},
	{"quantity", containsAny("quantity", "cantidad", "qty", "stock"), number, genQuantity},
	{"status", containsAny("status", "estado"), textual, pick(statuses)},
	{"flag", isFlag, booleanish, genFlag},
	{"url", containsAny("url", "link", "website", "homepage"), textual, genURL},
	{"category", containsAny("category", "categoria"), textual, pick(categories)},
	{"date", isDate, temporalOrText, genDate},
}

func containsAny(keywords ...string) func(string) bool {
	return func(name string) bool {
		for _, k := range keywords {
			if strings.Contains(name, k) {
				return true
			}
		}
		return false
	}
}

var notPersonName = containsAny("file", "user", "company", "product", "city", "table", "host", "domain", "display",
	"category", "categoria", "status", "estado", "role")

func isPersonName(name string) bool {
	return (strings.Contains(name, "name") || strings.Contains(name, "nombre")) && !notPersonName(name)
}

func isFlag(name string) bool {
	return strings.HasPrefix(name, "is_") || strings.HasPrefix(name, "has_") ||
		containsAny("active", "activo", "flag", "enabled", "verified")(name)
}

func isDate(name string) bool {
	return strings.HasSuffix(name, "_at") || strings.HasSuffix(name, "_on") ||
		containsAny("date", "fecha", "birth")(name)
}

func textual(t catalog.ColumnType) bool { return t.IsTextual() }

func number(t catalog.ColumnType) bool {
	return t == catalog.TypeInteger || t == catalog.TypeNumeric
}

func numberOrText(t catalog.ColumnType) bool { return number(t) || textual(t) }

func booleanish(t catalog.ColumnType) bool {
	return t == catalog.TypeBoolean || t == catalog.TypeInteger
}

func temporalOrText(t catalog.ColumnType) bool {
	return t == catalog.TypeTimestamp || t == catalog.TypeDate || textual(t)
}

func pick(list []string) genFunc {
	return func(gc *GenerationContext, _ catalog.Column) interface{} {
		return list[gc.rand.Intn(len(list))]
	}
}

func oneOf(gc *GenerationContext, list []string) string {
	return list[gc.rand.Intn(len(list))]
}

func genName(gc *GenerationContext, col catalog.Column) interface{} {
	name := strings.ToLower(col.Name)
	switch {
	case strings.Contains(name, "first"):
		return oneOf(gc, firstNames)
	case strings.Contains(name, "last") || strings.Contains(name, "surname"):
		return oneOf(gc, lastNames)
	}
	return oneOf(gc, firstNames) + " " + oneOf(gc, lastNames)
}

func genEmail(gc *GenerationContext, col catalog.Column) interface{} {
	local := fmt.Sprintf("%s.%s%d",
		strings.ToLower(oneOf(gc, firstNames)),
		strings.ToLower(oneOf(gc, lastNames)),
		gc.rand.Intn(1000))
	return fitEmail(local, oneOf(gc, domains), col.MaxLength)
}

// fitEmail shortens the local part so a length limit never cuts the domain off.
func fitEmail(local, domain string, maxLength int) string {
	email := local + "@" + domain
	if maxLength <= 0 || len(email) <= maxLength {
		return email
	}
	keep := maxLength - len(domain) - 1
	if keep < 1 {
		return truncate(email, maxLength)
	}
	return truncate(local, keep) + "@" + domain
}

func genPhone(gc *GenerationContext, _ catalog.Column) interface{} {
	return fmt.Sprintf("+1-%03d-%03d-%04d", gc.rand.Intn(1000), gc.rand.Intn(1000), gc.rand.Intn(10000))
}

func genAddress(gc *GenerationContext, _ catalog.Column) interface{} {
	return fmt.Sprintf("%d %s Street", gc.rand.Intn(9999)+1, oneOf(gc, streets))
}

func genCompany(gc *GenerationContext, _ catalog.Column) interface{} {
	return cases.Title(language.English).String(oneOf(gc, companyA) + oneOf(gc, companyB))
}

func genProduct(gc *GenerationContext, _ catalog.Column) interface{} {
	return cases.Title(language.English).String(oneOf(gc, adjectives) + " " + oneOf(gc, products))
}

func genDescription(gc *GenerationContext, col catalog.Column) interface{} {
	if strings.Contains(strings.ToLower(col.Name), "title") {
		return oneOf(gc, titles)
	}
	return oneOf(gc, sentences)
}

func genCode(gc *GenerationContext, _ catalog.Column) interface{} {
	return fmt.Sprintf("CODE%04d", gc.rand.Intn(9000)+1000)
}

func genPrice(gc *GenerationContext, col catalog.Column) interface{} {
	price := round2(5 + gc.rand.Float64()*495)
	switch col.Type {
	case catalog.TypeInteger:
		return int64(price)
	case catalog.TypeNumeric:
		return price
	}
	return fmt.Sprintf("%.2f", price)
}

func genQuantity(gc *GenerationContext, col catalog.Column) interface{} {
	q := int64(gc.rand.Intn(1001))
	if col.Type == catalog.TypeNumeric {
		return float64(q)
	}
	return q
}

func genFlag(gc *GenerationContext, col catalog.Column) interface{} {
	b := gc.rand.Intn(2) == 1
	if col.Type == catalog.TypeInteger {
		if b {
			return int64(1)
		}
		return int64(0)
	}
	return b
}

func genURL(gc *GenerationContext, _ catalog.Column) interface{} {
	return fmt.Sprintf("https://example.com/page/%d", gc.rand.Intn(1000))
}

func genDate(gc *GenerationContext, col catalog.Column) interface{} {
	t := randomTime(gc)
	if col.Type == catalog.TypeTimestamp {
		return t
	}
	return t.Format("2006-01-02")
}

func randomTime(gc *GenerationContext) time.Time {
	span := windowEnd.Unix() - windowStart.Unix()
	return windowStart.Add(time.Duration(gc.rand.Int63n(span)) * time.Second)
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
