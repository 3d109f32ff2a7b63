package query

import "regexp"

// Marker vocabularies for both query languages. Go's \b is ASCII-only, so
// Hebrew alternations anchor on whitespace groups instead of word boundaries.
var (
	requestFamilyRe = regexp.MustCompile(`(?i)בקשות|בקשה|פניות|פנייה|פניה|requests?|tickets?`)
	projectFamilyRe = regexp.MustCompile(`(?i)פרויקטים|פרוייקטים|פרויקט|פרוייקט|projects?`)

	similarRe    = regexp.MustCompile(`(?i)דומות ל|דומים ל|דומה ל|בדומה ל|similar to|requests? like|like request`)
	countRe      = regexp.MustCompile(`(?i)כמה|מספר ה|how many|count`)
	summarizeRe  = regexp.MustCompile(`(?i)סיכום|לסכם|סכם|תקציר|תמצית|summar|overview`)
	answerWordRe = regexp.MustCompile(`(?i)תשובה|תשובות|מענה|נענתה|נענו|answer|response|replied|resolved`)
	urgencyRe    = regexp.MustCompile(`(?i)דחופות|דחופים|דחופה|דחוף|דדליין|בהקדם|urgent|deadline|overdue|due soon|asap`)

	requestIDRe = regexp.MustCompile(`(?:^|[^0-9])([0-9]{9})(?:[^0-9]|$)`)

	typeIDRe   = regexp.MustCompile(`(?i)(?:מסוג|סוג פנייה|סוג פניה|סוג|type)\s*:?\s*([0-9]{1,4})(?:[^0-9]|$)`)
	statusIDRe = regexp.MustCompile(`(?i)(?:בסטטוס|סטטוס|status)\s*:?\s*([0-9]{1,4})(?:[^0-9]|$)`)

	// Person extraction rules, evaluated in order, first usable match wins.
	// The second rule splits the Hebrew from-particle fused onto a name
	// (e.g. a query about requests "from Moshe" written as one token).
	personRules = []*regexp.Regexp{
		regexp.MustCompile(`(?:מאת|על ידי|ע"י|שפתח|שפתחה|שעדכן|שעדכנה|באחריות|של)\s+([\p{Hebrew}]{2,}(?:\s+[\p{Hebrew}]{2,})?)`),
		regexp.MustCompile(`(?:בקשות|בקשה|פניות|פנייה|פניה)\s+מ([\p{Hebrew}]{2,}(?:\s+[\p{Hebrew}]{2,})?)`),
		regexp.MustCompile(`(?i)(?:opened by|updated by|created by|from|by)\s+([A-Za-z]{2,}(?:\s+[A-Za-z]{2,})?)`),
	}

	projectRules = []*regexp.Regexp{
		regexp.MustCompile(`(?:בפרויקט|בפרוייקט|לפרויקט|לפרוייקט|פרויקט|פרוייקט)\s+([\p{Hebrew}0-9"'׳-]{2,}(?:\s+[\p{Hebrew}0-9"'׳-]{2,})?)`),
		regexp.MustCompile(`(?i)(?:in project|for project|project)\s+([A-Za-z0-9][A-Za-z0-9'-]*(?:\s+[A-Za-z0-9'-]{2,})?)`),
	}

	contextualPersonRe = regexp.MustCompile(`(?i)מי |לקוח|איש קשר|עובד|פונה|אחראי|who |customer|client|person|contact`)
)

// entityStopWords terminate a captured name/project value: trigger words for
// other entity kinds, date vocabulary and filler particles. A capture whose
// first word lands here is discarded entirely.
var entityStopWords = map[string]struct{}{
	"סוג": {}, "מסוג": {}, "סטטוס": {}, "בסטטוס": {},
	"פרויקט": {}, "בפרויקט": {}, "הפרויקט": {}, "פרויקטים": {},
	"פרוייקט": {}, "בפרוייקט": {}, "הפרוייקט": {}, "פרוייקטים": {},
	"בקשות": {}, "בקשה": {}, "פניות": {}, "פנייה": {}, "פניה": {},
	"דחוף": {}, "דחופה": {}, "דחופות": {}, "דחופים": {},
	"שבוע": {}, "השבוע": {}, "מהשבוע": {}, "חודש": {}, "החודש": {}, "מהחודש": {},
	"יום": {}, "ימים": {}, "הימים": {}, "היום": {}, "אתמול": {},
	"שעבר": {}, "אחרון": {}, "האחרון": {}, "אחרונים": {}, "האחרונים": {},
	"אחרונות": {}, "האחרונות": {}, "לאחרונה": {},
	"עם": {}, "עבור": {}, "לגבי": {}, "אשר": {},
	"type": {}, "status": {}, "project": {}, "projects": {},
	"request": {}, "requests": {}, "ticket": {}, "tickets": {},
	"urgent": {}, "deadline": {}, "last": {}, "recent": {}, "latest": {},
	"week": {}, "month": {}, "day": {}, "days": {}, "today": {}, "yesterday": {},
	"of": {}, "for": {}, "in": {}, "at": {}, "with": {}, "and": {}, "the": {},
}

// contentStopWords are excluded when counting content words for the person
// intent heuristic.
var contentStopWords = map[string]struct{}{
	"בקשות": {}, "בקשה": {}, "פניות": {}, "פנייה": {}, "פניה": {},
	"פרויקט": {}, "פרויקטים": {}, "פרוייקט": {}, "פרוייקטים": {},
	"של": {}, "מאת": {}, "כמה": {}, "מה": {}, "איך": {}, "מתי": {}, "איפה": {},
	"כל": {}, "את": {}, "על": {}, "עם": {}, "יש": {}, "לי": {}, "אני": {},
	"הוא": {}, "היא": {}, "זה": {}, "זאת": {}, "גם": {}, "או": {}, "אם": {},
	"הכי": {}, "עוד": {}, "רק": {}, "אבל": {}, "עבור": {}, "לגבי": {},
	"סוג": {}, "מסוג": {}, "סטטוס": {}, "בסטטוס": {},
	"דחוף": {}, "דחופה": {}, "דחופות": {}, "דחופים": {}, "דדליין": {}, "בהקדם": {},
	"סיכום": {}, "תקציר": {}, "תמצית": {}, "סכם": {}, "לסכם": {},
	"דומה": {}, "דומות": {}, "דומים": {}, "תשובה": {}, "מענה": {},
	"שבוע": {}, "השבוע": {}, "מהשבוע": {}, "חודש": {}, "החודש": {}, "מהחודש": {},
	"יום": {}, "ימים": {}, "הימים": {}, "היום": {}, "אתמול": {}, "אחורה": {}, "לפני": {},
	"שעבר": {}, "אחרון": {}, "האחרון": {}, "אחרונים": {}, "האחרונים": {},
	"אחרונות": {}, "האחרונות": {}, "לאחרונה": {},
	"request": {}, "requests": {}, "ticket": {}, "tickets": {},
	"project": {}, "projects": {}, "from": {}, "by": {}, "of": {}, "the": {},
	"a": {}, "an": {}, "all": {}, "show": {}, "me": {}, "find": {}, "get": {},
	"how": {}, "many": {}, "count": {}, "what": {}, "which": {}, "when": {},
	"type": {}, "status": {}, "urgent": {}, "deadline": {}, "overdue": {},
	"summary": {}, "summarize": {}, "overview": {}, "similar": {}, "to": {},
	"like": {}, "answer": {}, "response": {}, "last": {}, "recent": {},
	"recently": {}, "latest": {}, "week": {}, "month": {}, "days": {},
	"day": {}, "back": {}, "ago": {}, "in": {}, "on": {}, "with": {},
	"and": {}, "or": {}, "is": {}, "are": {}, "was": {}, "were": {},
}
