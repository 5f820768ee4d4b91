package schema

import "strings"

var abbreviations = map[string]string{
	// Common Nouns
	"nm": "name", "dt": "date", "no": "number", "cd": "code",
	"desc": "description", "amt": "amount", "cnt": "count", "qty": "quantity",
	"addr": "address", "tel": "phone", "hp": "phone", "ph": "phone", "mobile": "phone",
	"mail": "email", "pwd": "password", "passwd": "password", "pw": "password",
	"img": "image", "url": "url", "link": "url", "ip": "ip", "zip": "zipcode", "postal": "zipcode",
	"msg": "message", "txt": "text", "tit": "title", "subj": "subject",
	"usr": "user", "login": "username", "nick": "username",
	"co": "company", "corp": "company", "org": "company",
	"lat": "latitude", "lng": "longitude", "lon": "longitude",
	"st": "street", "dist": "district", "ctry": "country", "nation": "country",
	"price": "price", "cost": "price", "fee": "price", "amount": "price",
	"uuid": "uuid", "guid": "uuid", "token": "uuid",

	// Verbs / Status
	"reg": "created", "cre": "created", "mod": "updated", "upd": "updated",
	"yn": "yesno", "is": "yesno", "has": "yesno", "use": "yesno", "flg": "yesno", "flag": "yesno",
	"stat": "status", "sts": "status", "typ": "type",
}

// Meaning expands a column name into words a value generator can match on, for
// example "usr_tel_no" becomes "user phone number".
func Meaning(column string) string {
	parts := strings.FieldsFunc(strings.ToLower(column), func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	for i, part := range parts {
		if full, ok := abbreviations[part]; ok {
			parts[i] = full
		}
	}
	return strings.Join(parts, " ")
}
