package engine

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"

	"db-migrate/internal/schema"
	"db-migrate/internal/value"
)

// generator produces plausible column values from a column's type family and the
// meaning of its name.
type generator struct {
	faker *gofakeit.Faker
	now   time.Time
}

func newGenerator(seed int64) *generator {
	return &generator{faker: gofakeit.New(seed), now: time.Now()}
}

// value generates one value. index is the attempt number, used to keep integer
// keys distinct.
func (g *generator) value(col schema.ColumnDescriptor, index int) value.Value {
	t := col.Type
	meaning := schema.Meaning(col.Name)

	switch t.Family {
	case schema.Text, schema.VarChar:
		return value.TextValue(clip(g.text(meaning), t.Length))

	case schema.Integer, schema.BigInteger:
		if col.PrimaryKey {
			return value.IntValue(int64(index))
		}
		if has(meaning, "yesno") {
			return value.IntValue(int64(g.faker.Number(0, 1)))
		}
		if has(meaning, "year") {
			return value.IntValue(int64(g.faker.Number(2000, 2025)))
		}
		if has(meaning, "count", "quantity") {
			return value.IntValue(int64(g.faker.Number(0, 100)))
		}
		return value.IntValue(int64(g.faker.Number(1, 50000)))

	case schema.Decimal:
		limit := 99.99
		if t.Precision > 0 && t.Precision-t.Scale < 3 {
			limit = math.Pow10(t.Precision-t.Scale) - 1
		}
		d := decimal.NewFromFloat(g.faker.Float64Range(0, limit))
		return value.DecimalValue(d.Round(int32(t.Scale)))

	case schema.Float:
		if has(meaning, "latitude") {
			return value.FloatValue(g.faker.Latitude())
		}
		if has(meaning, "longitude") {
			return value.FloatValue(g.faker.Longitude())
		}
		return value.FloatValue(g.faker.Price(0.99, 99.99))

	case schema.Boolean:
		return value.BoolValue(g.faker.Bool())

	case schema.Timestamp:
		return value.TimeValue(g.faker.DateRange(g.now.AddDate(-1, 0, 0), g.now).Truncate(time.Second))

	case schema.Date:
		d := g.faker.DateRange(g.now.AddDate(-1, 0, 0), g.now)
		return value.TimeValue(time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC))

	case schema.JSON:
		b, _ := json.Marshal(map[string]any{"note": g.faker.Word(), "score": g.faker.Number(1, 10)})
		return value.JSONValue(string(b))
	}

	if col.Nullable {
		return value.NullValue()
	}
	return value.TextValue(g.faker.Word())
}

// text picks a generator by meaning, the way column names usually read.
func (g *generator) text(meaning string) string {
	switch {
	case has(meaning, "year"):
		return fmt.Sprintf("%d", g.faker.Number(2000, 2025))
	case has(meaning, "uuid"):
		return g.faker.UUID()
	case has(meaning, "id"):
		return g.faker.LetterN(8)
	case has(meaning, "email"):
		return g.faker.Email()
	case has(meaning, "phone"):
		return g.faker.Phone()
	case has(meaning, "username"):
		return g.faker.Username()
	case has(meaning, "password"):
		return g.faker.Password(true, true, true, false, false, 12)
	case has(meaning, "first"):
		return g.faker.FirstName()
	case has(meaning, "last"):
		return g.faker.LastName()
	case has(meaning, "name"):
		return g.faker.Name()
	case has(meaning, "address", "street"):
		return g.faker.Street()
	case has(meaning, "city"):
		return g.faker.City()
	case has(meaning, "country"):
		return g.faker.Country()
	case has(meaning, "zipcode"):
		return g.faker.Zip()
	case has(meaning, "company"):
		return g.faker.Company()
	case has(meaning, "url", "image"):
		return g.faker.URL()
	case has(meaning, "ip"):
		return g.faker.IPv4Address()
	case has(meaning, "yesno"):
		if g.faker.Bool() {
			return "Y"
		}
		return "N"
	case has(meaning, "status", "type", "code"):
		return g.faker.RandomString([]string{"active", "pending", "closed"})
	case has(meaning, "title", "subject"):
		return g.faker.Sentence(3)
	case has(meaning, "description", "message", "text", "comment", "content"):
		return g.faker.Sentence(12)
	}
	return g.faker.Word()
}

// has reports whether any of the words appears in meaning.
func has(meaning string, words ...string) bool {
	for _, field := range strings.Fields(meaning) {
		for _, w := range words {
			if field == w {
				return true
			}
		}
	}
	return false
}

// clip cuts s to at most n runes; n <= 0 means unbounded.
func clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
