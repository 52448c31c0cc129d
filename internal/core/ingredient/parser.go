package ingredient

import (
	"strings"
	"unicode"
)

// ParsedIngredient 一行食材描述拆解後的結構
type ParsedIngredient struct {
	Raw             string `json:"raw"`
	Quantity        string `json:"quantity"`
	Unit            string `json:"unit"`
	Name            string `json:"name"`
	Preparation     string `json:"preparation"`
	IsFromUserInput bool   `json:"isFromUserInput"`
}

// 可以當作單位的字（小寫、去掉結尾句點後比對）
var unitWords = map[string]bool{
	"c": true, "cup": true, "cups": true,
	"tbsp": true, "tbs": true, "tbl": true, "tablespoon": true, "tablespoons": true,
	"tsp": true, "teaspoon": true, "teaspoons": true,
	"oz": true, "ounce": true, "ounces": true,
	"lb": true, "lbs": true, "pound": true, "pounds": true,
	"g": true, "gram": true, "grams": true, "kg": true, "kilogram": true, "kilograms": true, "mg": true,
	"ml": true, "milliliter": true, "milliliters": true, "millilitre": true, "millilitres": true,
	"l": true, "liter": true, "liters": true, "litre": true, "litres": true,
	"qt": true, "quart": true, "quarts": true, "pt": true, "pint": true, "pints": true,
	"gal": true, "gallon": true, "gallons": true,
	"clove": true, "cloves": true, "can": true, "cans": true, "tin": true, "tins": true,
	"jar": true, "jars": true, "package": true, "packages": true, "pkg": true, "packet": true, "packets": true,
	"bag": true, "bags": true, "box": true, "boxes": true, "bottle": true, "bottles": true,
	"bunch": true, "bunches": true, "slice": true, "slices": true, "piece": true, "pieces": true,
	"stick": true, "sticks": true, "sprig": true, "sprigs": true, "head": true, "heads": true,
	"stalk": true, "stalks": true, "handful": true, "handfuls": true, "pinch": true, "pinches": true,
	"dash": true, "dashes": true, "splash": true, "drop": true, "drops": true, "cube": true, "cubes": true,
	"fillet": true, "fillets": true, "loaf": true, "loaves": true, "portion": true, "portions": true,
	"inch": true, "inches": true, "cm": true,
}

// 只能出現在單位前面的修飾字，例如 "fl oz"、"heaping tbsp"
var unitPrefixes = map[string]bool{
	"fl": true, "fluid": true, "heaping": true, "level": true, "scant": true, "rounded": true,
}

// 沒有數量時也視為單位的字
var looseMeasures = map[string]bool{
	"pinch": true, "dash": true, "handful": true, "splash": true, "sprig": true, "bunch": true,
}

// Parse 拆解一行食材描述：數量、單位、名稱、處理方式
//
// 名稱為空代表無法解析，呼叫端應丟棄結果。
func Parse(raw string) ParsedIngredient {
	s := newScanner(stripBold(raw))
	p := ParsedIngredient{Raw: raw}
	p.Quantity = s.quantity()
	p.Unit = s.unit(p.Quantity != "")
	p.Name, p.Preparation = splitNote(s.rest())
	return p
}

// stripBold 移除成對的 **粗體** 標記，不成對的保留原樣
func stripBold(text string) string {
	var b strings.Builder
	for {
		open := strings.Index(text, "**")
		if open == -1 {
			break
		}
		closing := strings.Index(text[open+2:], "**")
		if closing == -1 {
			break
		}
		b.WriteString(text[:open])
		b.WriteString(text[open+2 : open+2+closing])
		text = text[open+2+closing+2:]
	}
	b.WriteString(text)
	return strings.TrimSpace(b.String())
}

// splitNote 名稱到第一個逗號或左括號為止；處理方式優先取括號內文字，沒有括號才取逗號後文字
//
// 開頭就是括號時（"(400g) chickpeas"）名稱取括號後的文字，仍為空則退回整段剩餘文字。
func splitNote(rest string) (name, prep string) {
	name, prep = cutNote(rest)
	if name != "" {
		return name, prep
	}
	if strings.HasPrefix(rest, "(") {
		if end := strings.IndexRune(rest, ')'); end != -1 {
			var after string
			name, after = cutNote(rest[end+1:])
			if prep == "" {
				prep = after
			}
		}
	}
	if name == "" {
		name = strings.Trim(rest, "(), \t")
	}
	return name, prep
}

func cutNote(rest string) (name, prep string) {
	cut := len(rest)
	paren := strings.IndexRune(rest, '(')
	comma := strings.IndexRune(rest, ',')
	if paren != -1 && paren < cut {
		cut = paren
	}
	if comma != -1 && comma < cut {
		cut = comma
	}
	name = strings.TrimSpace(rest[:cut])

	switch {
	case paren != -1:
		inner := rest[paren+1:]
		if end := strings.IndexRune(inner, ')'); end != -1 {
			inner = inner[:end]
		}
		prep = strings.TrimSpace(inner)
	case comma != -1:
		prep = strings.TrimSpace(rest[comma+1:])
	}
	return name, prep
}

type scanner struct {
	src []rune
	pos int
}

func newScanner(text string) *scanner {
	return &scanner{src: []rune(text)}
}

func (s *scanner) peek() (rune, bool) {
	if s.pos >= len(s.src) {
		return 0, false
	}
	return s.src[s.pos], true
}

func (s *scanner) skipSpaces() int {
	start := s.pos
	for s.pos < len(s.src) && unicode.IsSpace(s.src[s.pos]) {
		s.pos++
	}
	return s.pos - start
}

func isQuantityRune(r rune) bool {
	switch r {
	case '/', '.', '-', '–', '¼', '½', '¾', '⅓', '⅔', '⅛':
		return true
	}
	return r >= '0' && r <= '9'
}

func isDigitLike(r rune) bool {
	return (r >= '0' && r <= '9') || strings.ContainsRune("¼½¾⅓⅔⅛", r)
}

// numberRun 讀取一段數字/分數/小數/連字號，必須含至少一個數字
func (s *scanner) numberRun() bool {
	start := s.pos
	hasDigit := false
	for s.pos < len(s.src) && isQuantityRune(s.src[s.pos]) {
		if isDigitLike(s.src[s.pos]) {
			hasDigit = true
		}
		s.pos++
	}
	if !hasDigit {
		s.pos = start
		return false
	}
	// "1-inch" 的連字號不屬於數量
	for s.pos > start && strings.ContainsRune("-–./", s.src[s.pos-1]) {
		s.pos--
	}
	return true
}

// keyword 讀取一個完整的字（後面不能緊接字母）
func (s *scanner) keyword(word string) bool {
	w := []rune(word)
	if s.pos+len(w) > len(s.src) {
		return false
	}
	for i, r := range w {
		if unicode.ToLower(s.src[s.pos+i]) != r {
			return false
		}
	}
	if next := s.pos + len(w); next < len(s.src) && unicode.IsLetter(s.src[next]) {
		return false
	}
	s.pos += len(w)
	return true
}

// quantity 開頭數量：1、1/2、1.5、1-2、1 1/2、2 to 3
func (s *scanner) quantity() string {
	start := s.pos
	if !s.numberRun() {
		return ""
	}
	end := s.pos

	// 帶分數 "1 1/2"
	if s.skipSpaces() > 0 {
		mark := s.pos
		if s.numberRun() && strings.ContainsRune(string(s.src[mark:s.pos]), '/') {
			end = s.pos
		}
	}
	s.pos = end

	// 範圍 "2 to 3" 或 "2 - 3"
	s.skipSpaces()
	if s.keyword("to") {
		s.skipSpaces()
		if s.numberRun() {
			end = s.pos
		}
	} else if r, ok := s.peek(); ok && (r == '-' || r == '–') {
		s.pos++
		s.skipSpaces()
		if s.numberRun() {
			end = s.pos
		}
	}
	s.pos = end

	// "1-inch piece" 連字號後接單位
	if r, ok := s.peek(); ok && (r == '-' || r == '–') {
		if w, _ := s.word(s.pos + 1); w != "" && unitWords[unitKey(w)] {
			s.pos++
		}
	}

	q := strings.TrimSpace(string(s.src[start:end]))
	s.skipSpaces()
	return q
}

// word 讀取一個英文字（可帶結尾句點），不移動位置
func (s *scanner) word(at int) (string, int) {
	i := at
	for i < len(s.src) && (unicode.IsLetter(s.src[i]) && s.src[i] < unicode.MaxASCII) {
		i++
	}
	if i == at {
		return "", at
	}
	if i < len(s.src) && s.src[i] == '.' {
		i++
	}
	// 單位後面必須是空白、逗號、括號或結尾
	if i < len(s.src) && !unicode.IsSpace(s.src[i]) && s.src[i] != ',' && s.src[i] != '(' {
		return "", at
	}
	return string(s.src[at:i]), i
}

func unitKey(w string) string {
	return strings.TrimSuffix(strings.ToLower(w), ".")
}

// unit 數量後的單位，最多兩個字；第一個字必須是已知單位，或是單位修飾字加上已知單位
func (s *scanner) unit(hasQuantity bool) string {
	first, next := s.word(s.pos)
	if first == "" {
		return ""
	}
	key := unitKey(first)

	unit := ""
	end := next
	switch {
	case unitWords[key] && (hasQuantity || looseMeasures[key]):
		unit = first
	case unitPrefixes[key] && hasQuantity:
		after := next
		for after < len(s.src) && unicode.IsSpace(s.src[after]) {
			after++
		}
		second, secondEnd := s.word(after)
		if second == "" || !unitWords[unitKey(second)] {
			return ""
		}
		unit = first + " " + second
		end = secondEnd
	default:
		return ""
	}

	s.pos = end
	s.skipSpaces()
	if s.keyword("of") {
		s.skipSpaces()
	}
	return unit
}

func (s *scanner) rest() string {
	return strings.TrimSpace(string(s.src[s.pos:]))
}
