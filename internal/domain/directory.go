package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Row cell positions.
const (
	CellName = iota
	CellSurname
	CellPhone

	rowCells
)

// Row is one Directory entry: a snapshot of a Contact's name, surname and
// phone plus a reference back to the Contact it was taken from.
type Row struct {
	cells   [rowCells]string
	contact *Contact
}

func newRow(c *Contact) Row {
	return Row{
		cells:   [rowCells]string{c.Name(), c.Surname(), c.Phone()},
		contact: c,
	}
}

// Cell returns the display value at position i (CellName, CellSurname, CellPhone).
func (r Row) Cell(i int) string { return r.cells[i] }

// Cells returns the three display values.
func (r Row) Cells() [3]string { return r.cells }

// Contact returns the source Contact.
func (r Row) Contact() *Contact { return r.contact }

// Directory is the ordered in-memory projection of an Owner's Contacts.
// It is not safe for concurrent use; callers serialize access per Owner.
type Directory struct {
	rows []Row
}

// NewDirectory builds one Row per Contact in input order. It does not sort.
func NewDirectory(contacts []*Contact) *Directory {
	rows := make([]Row, 0, len(contacts))
	for _, c := range contacts {
		rows = append(rows, newRow(c))
	}
	return &Directory{rows: rows}
}

// Rows returns a copy of the rows in display order.
func (d *Directory) Rows() []Row {
	out := make([]Row, len(d.rows))
	copy(out, d.rows)
	return out
}

// Contacts returns the source Contacts in display order.
func (d *Directory) Contacts() []*Contact {
	out := make([]*Contact, len(d.rows))
	for i, r := range d.rows {
		out[i] = r.contact
	}
	return out
}

// Len returns the number of rows.
func (d *Directory) Len() int { return len(d.rows) }

// Add appends a row snapshotting c's current values.
func (d *Directory) Add(c *Contact) {
	d.rows = append(d.rows, newRow(c))
}

// Modify refreshes the row whose Contact has c's identifier. It reports
// whether a row was found; a miss leaves the Directory unchanged.
func (d *Directory) Modify(c *Contact) bool {
	i := d.indexOf(c.ID())
	if i < 0 {
		return false
	}
	d.rows[i] = newRow(c)
	return true
}

// Delete removes the row whose Contact has c's identifier. It reports
// whether a row was found; a miss leaves the Directory unchanged.
func (d *Directory) Delete(c *Contact) bool {
	i := d.indexOf(c.ID())
	if i < 0 {
		return false
	}
	d.rows = append(d.rows[:i], d.rows[i+1:]...)
	return true
}

// Find returns the Contact with the given identifier.
func (d *Directory) Find(id uuid.UUID) (*Contact, bool) {
	i := d.indexOf(id)
	if i < 0 {
		return nil, false
	}
	return d.rows[i].contact, true
}

// SelectByIndexes resolves 0-based display positions to Contact
// identifiers. If any index is out of range nothing is returned.
func (d *Directory) SelectByIndexes(indexes []int) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(d.rows) {
			return nil, NewDomainError(
				ErrIndexOutOfRange,
				fmt.Sprintf("row %d does not exist, directory has %d rows", idx, len(d.rows)),
				"",
			)
		}
		ids = append(ids, d.rows[idx].contact.ID())
	}
	return ids, nil
}

// Render returns a fixed-width "Name | Surname | Phone" table with 1-based
// row numbers.
func (d *Directory) Render() string {
	headers := [rowCells]string{"Name", "Surname", "Phone"}

	var widths [rowCells]int
	for i, h := range headers {
		widths[i] = utf8.RuneCountInString(h)
	}
	for _, r := range d.rows {
		for i, cell := range r.cells {
			widths[i] = max(widths[i], utf8.RuneCountInString(cell))
		}
	}
	numWidth := len(fmt.Sprintf("%d.", len(d.rows)))

	var b strings.Builder
	writeLine := func(prefix string, cells [rowCells]string) {
		b.WriteString(pad(prefix, numWidth))
		b.WriteByte(' ')
		for i, cell := range cells {
			if i == CellPhone {
				b.WriteString(cell)
				break
			}
			b.WriteString(pad(cell, widths[i]))
			b.WriteString(" | ")
		}
		b.WriteByte('\n')
	}

	writeLine("", headers)
	for i, r := range d.rows {
		writeLine(fmt.Sprintf("%d.", i+1), r.cells)
	}
	return b.String()
}

// String implements fmt.Stringer.
func (d *Directory) String() string { return d.Render() }

func (d *Directory) indexOf(id uuid.UUID) int {
	for i, r := range d.rows {
		if r.contact.ID() == id {
			return i
		}
	}
	return -1
}

func pad(s string, width int) string {
	if n := utf8.RuneCountInString(s); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
