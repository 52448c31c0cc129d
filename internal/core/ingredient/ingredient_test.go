package ingredient

import (
	"encoding/json"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "trailing comma and space", in: " apple,", want: "Apple"},
		{name: "empty", in: "", want: ""},
		{name: "only comma", in: " , ", want: ""},
		{name: "mixed case", in: "gREEN onion", want: "Green onion"},
		{name: "comma then space", in: "leek ,", want: "Leek"},
		{name: "double comma", in: "kale,,", want: "Kale"},
		{name: "non ascii first rune", in: "éclair", want: "Éclair"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("Normalize not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestTagSetAdd(t *testing.T) {
	set := NewTagSet("eggs", "Spinach")
	if set.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", set.Len())
	}

	if set.Add(" EGGS,") {
		t.Error("adding a duplicate normalized tag should be a no-op")
	}
	if set.Add("   ") {
		t.Error("adding an empty tag should be a no-op")
	}
	if set.Len() != 2 {
		t.Errorf("Len() after duplicates = %d, want 2", set.Len())
	}

	set.Add("onion")
	want := []string{"Eggs", "Spinach", "Onion"}
	got := set.Tags()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Tags()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestTagSetRemoveAndPop(t *testing.T) {
	set := NewTagSet("eggs", "milk", "rice")
	clone := set.Clone()

	if !set.Remove("Milk") {
		t.Fatal("Remove(Milk) should succeed")
	}
	if set.Remove("milk") {
		t.Error("Remove is exact-value; lowercase should not match")
	}
	last, ok := set.Pop()
	if !ok || last != "Rice" {
		t.Errorf("Pop() = %q, %v; want Rice, true", last, ok)
	}
	if set.Len() != 1 {
		t.Errorf("Len() = %d, want 1", set.Len())
	}
	if clone.Len() != 3 {
		t.Errorf("clone should be unaffected, Len() = %d", clone.Len())
	}

	empty := &TagSet{}
	if _, ok := empty.Pop(); ok {
		t.Error("Pop on empty set should report false")
	}
}

func TestTagSetJSON(t *testing.T) {
	var set TagSet
	if err := json.Unmarshal([]byte(`["eggs","EGGS"," kale,"]`), &set); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	data, err := json.Marshal(&set)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `["Eggs","Kale"]` {
		t.Errorf("Marshal = %s", data)
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		a, b string
		want bool
	}{
		{"Garlic", "garlic", true},
		{"Tomatoes", "Tomato", true},
		{"Egg", "Eggs", true},
		{"Rice", "Chicken", false},
		{"", "rice", false},
		{"rice", "  ", false},
	}
	for _, tt := range tests {
		if got := Overlaps(tt.a, tt.b); got != tt.want {
			t.Errorf("Overlaps(%q, %q) = %v, want %v", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestIsAvailable(t *testing.T) {
	tags := []string{"Garlic"}
	if !IsAvailable("3 cloves garlic, minced", tags) {
		t.Error("garlic line should be available")
	}
	if IsAvailable("2 lemons", tags) {
		t.Error("lemons should not be available")
	}
	if !IsAvailable("**Garlic** (2 cloves)", tags) {
		t.Error("bold markers should be ignored")
	}
	if IsAvailable("**", tags) {
		t.Error("a line that cleans to empty should never be available")
	}
}

func TestBucket(t *testing.T) {
	lines := []string{"2 eggs", "1 cup spinach", "salt"}
	got := Bucket(lines, []string{"Eggs", "Spinach"})
	if len(got.Available) != 2 || len(got.Additional) != 1 {
		t.Fatalf("Bucket = %+v", got)
	}
	if got.MatchPercentage != 67 {
		t.Errorf("MatchPercentage = %d, want 67", got.MatchPercentage)
	}

	empty := Bucket(nil, []string{"Eggs"})
	if empty.MatchPercentage != 100 {
		t.Errorf("empty list MatchPercentage = %d, want 100", empty.MatchPercentage)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		raw      string
		quantity string
		unit     string
		name     string
		prep     string
	}{
		{"2 cups chopped spinach (washed)", "2", "cups", "chopped spinach", "washed"},
		{"3 cloves garlic, minced", "3", "cloves", "garlic", "minced"},
		{"**2** large eggs", "2", "", "large eggs", ""},
		{"1/2 tsp salt", "1/2", "tsp", "salt", ""},
		{"1 1/2 cups flour", "1 1/2", "cups", "flour", ""},
		{"2 to 3 cups water", "2 to 3", "cups", "water", ""},
		{"1-2 tbsp olive oil", "1-2", "tbsp", "olive oil", ""},
		{"2 tomatoes", "2", "", "tomatoes", ""},
		{"Fresh herbs", "", "", "Fresh herbs", ""},
		{"Olive oil", "", "", "Olive oil", ""},
		{"pinch of salt", "", "pinch", "salt", ""},
		{"8 fl oz milk", "8", "fl oz", "milk", ""},
		{"Salt and pepper, to taste", "", "", "Salt and pepper", "to taste"},
		{"1 can (400g) chickpeas, drained", "1", "can", "chickpeas", "400g"},
		{"(optional) parsley", "", "", "parsley", "optional"},
		{"1-inch piece ginger", "1", "inch", "piece ginger", ""},
		{"2-3 cloves garlic", "2-3", "cloves", "garlic", ""},
		{"½ cup rice", "½", "cup", "rice", ""},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			p := Parse(tt.raw)
			if p.Quantity != tt.quantity {
				t.Errorf("Quantity = %q, want %q", p.Quantity, tt.quantity)
			}
			if p.Unit != tt.unit {
				t.Errorf("Unit = %q, want %q", p.Unit, tt.unit)
			}
			if p.Name != tt.name {
				t.Errorf("Name = %q, want %q", p.Name, tt.name)
			}
			if p.Preparation != tt.prep {
				t.Errorf("Preparation = %q, want %q", p.Preparation, tt.prep)
			}
		})
	}
}

func TestFormat(t *testing.T) {
	used := []string{"Eggs", "Spinach", "Eggs"}
	extra := []string{"Olive oil", "(garnish)", "Salt"}

	got := Format(used, extra, []string{"Eggs"})
	names := make([]string, 0, len(got))
	for _, p := range got {
		names = append(names, p.Name)
	}
	want := []string{"Eggs", "Spinach", "Olive oil", "garnish", "Salt"}
	if len(names) != len(want) {
		t.Fatalf("Format names = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("names[%d] = %q, want %q", i, names[i], want[i])
		}
	}
	if !got[0].IsFromUserInput || got[1].IsFromUserInput {
		t.Errorf("IsFromUserInput flags wrong: %+v", got[:2])
	}
	if FromUserInput(ParsedIngredient{}, []string{"Eggs"}) {
		t.Error("FromUserInput with empty name = true, want false")
	}
	if CountFromUser(got) != 1 {
		t.Errorf("CountFromUser = %d, want 1", CountFromUser(got))
	}
}
