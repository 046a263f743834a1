package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout describes the wide table: shared fields followed by repeated
// researcher blocks. The block count is inferred from the header.
type Layout struct {
	Shared []Field
	Block  []Field
}

// DefaultLayout returns the grant application layout: 26 shared fields and
// 15-field researcher blocks.
func DefaultLayout() Layout {
	shared := []Field{
		{Name: ApplicationID, Scope: Shared, Role: Key},
		{Name: GrantStatus, Scope: Shared, Role: Label},
		{Name: SponsorCode, Scope: Shared, Role: Drop},
		{Name: GrantCategory, Scope: Shared, Role: Derived},
		{Name: ContractValueBand, Scope: Shared, Role: Keep},
		{Name: StartDate, Scope: Shared, Role: Keep},
	}
	for _, prefix := range [][2]string{
		{RFCDCodePrefix, RFCDPercentagePrefix},
		{SEOCodePrefix, SEOPercentagePrefix},
	} {
		for i := 1; i <= CodeSlots; i++ {
			shared = append(shared,
				Field{Name: SlotColumn(prefix[0], i), Scope: Shared, Role: Derived},
				Field{Name: SlotColumn(prefix[1], i), Scope: Shared, Role: Derived},
			)
		}
	}

	block := []Field{
		{Name: PersonID, Scope: Researcher, Role: Drop},
		{Name: ResearcherRole, Scope: Researcher, Role: Derived},
		{Name: YearOfBirth, Scope: Researcher, Role: Derived},
		{Name: CountryOfBirth, Scope: Researcher, Role: Derived},
		{Name: HomeLanguage, Scope: Researcher, Role: Drop},
		{Name: DeptNo, Scope: Researcher, Role: Drop},
		{Name: FacultyNo, Scope: Researcher, Role: Drop},
		{Name: WithPHD, Scope: Researcher, Role: Drop},
		{Name: YearsInUni, Scope: Researcher, Role: Drop},
		{Name: SuccessfulGrants, Scope: Researcher, Role: Derived},
		{Name: UnsuccessfulGrants, Scope: Researcher, Role: Derived},
		{Name: PapersAStar, Scope: Researcher, Role: Derived},
		{Name: PapersA, Scope: Researcher, Role: Derived},
		{Name: PapersB, Scope: Researcher, Role: Derived},
		{Name: PapersC, Scope: Researcher, Role: Derived},
	}
	return Layout{Shared: shared, Block: block}
}

// SlotColumn names slot i (1-based) of a code or percentage family.
func SlotColumn(prefix string, i int) string { return prefix + strconv.Itoa(i) }

// BlockColumn names field j of researcher block k (1-based).
func (l Layout) BlockColumn(j, k int) string {
	return strings.TrimSuffix(l.Block[j].Name, "1") + strconv.Itoa(k)
}

// SharedWidth is the number of shared columns.
func (l Layout) SharedWidth() int { return len(l.Shared) }

// BlockWidth is the number of columns in one researcher block.
func (l Layout) BlockWidth() int { return len(l.Block) }

// Header returns the canonical header for the given number of blocks.
func (l Layout) Header(blocks int) []string {
	out := make([]string, 0, l.SharedWidth()+blocks*l.BlockWidth())
	for _, f := range l.Shared {
		out = append(out, f.Name)
	}
	for k := 1; k <= blocks; k++ {
		for j := range l.Block {
			out = append(out, l.BlockColumn(j, k))
		}
	}
	return out
}

// ResearcherHeader is the header of the long researcher table.
func (l Layout) ResearcherHeader() []string { return l.Header(1) }

// Blocks infers the number of researcher blocks from a column count.
func (l Layout) Blocks(columns int) (int, error) {
	if l.BlockWidth() == 0 {
		return 0, fmt.Errorf("layout has an empty researcher block: %w", ErrSchema)
	}
	rest := columns - l.SharedWidth()
	if rest < l.BlockWidth() {
		return 0, fmt.Errorf("%d columns leave no room for a %d-wide researcher block after %d shared columns: %w",
			columns, l.BlockWidth(), l.SharedWidth(), ErrSchema)
	}
	if rest%l.BlockWidth() != 0 {
		return 0, fmt.Errorf("%d repeated columns are not a multiple of block width %d: %w", rest, l.BlockWidth(), ErrSchema)
	}
	return rest / l.BlockWidth(), nil
}

// Validate checks a raw header against the layout and returns the block count.
func (l Layout) Validate(header []string) (int, error) {
	blocks, err := l.Blocks(len(header))
	if err != nil {
		return 0, err
	}
	want := l.Header(blocks)
	for i, name := range want {
		if header[i] != name {
			return 0, fmt.Errorf("column %d is %q, want %q: %w", i, header[i], name, ErrSchema)
		}
	}
	return blocks, nil
}

// Require checks that every name is present in a header.
func Require(header []string, names ...string) error {
	have := make(map[string]struct{}, len(header))
	for _, h := range header {
		have[h] = struct{}{}
	}
	var missing []string
	for _, n := range names {
		if _, ok := have[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required columns %s: %w", strings.Join(missing, ", "), ErrSchema)
	}
	return nil
}

// Names returns the fields of the researcher table that carry one of roles,
// in layout order.
func (l Layout) Names(roles ...Role) []string {
	var out []string
	for _, f := range append(append([]Field(nil), l.Shared...), l.Block...) {
		for _, r := range roles {
			if f.Role == r {
				out = append(out, f.Name)
				break
			}
		}
	}
	return out
}
