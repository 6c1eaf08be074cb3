package catalog

import (
	"strconv"
	"strings"
	"time"
)

// The String methods render the statement that defines an object, as written by export.

func (d *Namespace) String() string {
	return "DEFINE NAMESPACE " + d.Name + comment(d.Comment)
}

func (d *Database) String() string {
	return "DEFINE DATABASE " + d.Name + d.Changefeed.clause() + comment(d.Comment)
}

func (d *Table) String() string {
	var b strings.Builder
	b.WriteString("DEFINE TABLE ")
	b.WriteString(d.Name)
	switch d.Type {
	case TableNormal:
		b.WriteString(" TYPE NORMAL")
	case TableRelation:
		b.WriteString(" TYPE RELATION")
		if len(d.In) > 0 {
			b.WriteString(" IN " + strings.Join(d.In, " | "))
		}
		if len(d.Out) > 0 {
			b.WriteString(" OUT " + strings.Join(d.Out, " | "))
		}
	default:
		b.WriteString(" TYPE ANY")
	}
	if d.Drop {
		b.WriteString(" DROP")
	}
	if d.Full {
		b.WriteString(" SCHEMAFULL")
	} else {
		b.WriteString(" SCHEMALESS")
	}
	b.WriteString(d.Changefeed.clause())
	b.WriteString(comment(d.Comment))
	return b.String()
}

func (d *Field) String() string {
	var b strings.Builder
	b.WriteString("DEFINE FIELD " + d.Name + " ON " + d.Table)
	if d.Type != "" {
		b.WriteString(" TYPE " + d.Type)
	}
	if d.Default != "" {
		b.WriteString(" DEFAULT " + d.Default)
	}
	if d.Readonly {
		b.WriteString(" READONLY")
	}
	if d.Value != "" {
		b.WriteString(" VALUE " + d.Value)
	}
	if d.Assert != "" {
		b.WriteString(" ASSERT " + d.Assert)
	}
	b.WriteString(comment(d.Comment))
	return b.String()
}

func (d *Index) String() string {
	s := "DEFINE INDEX " + d.Name + " ON " + d.Table + " FIELDS " + strings.Join(d.Cols, ", ")
	if d.Unique {
		s += " UNIQUE"
	}
	return s + comment(d.Comment)
}

func (d *Event) String() string {
	thens := make([]string, len(d.Then))
	for i, t := range d.Then {
		thens[i] = "(" + t + ")"
	}
	return "DEFINE EVENT " + d.Name + " ON " + d.Table + " WHEN " + d.When + " THEN " + strings.Join(thens, ", ") +
		comment(d.Comment)
}

func (d *Function) String() string {
	args := make([]string, len(d.Args))
	for i, a := range d.Args {
		args[i] = "$" + a.Name + ": " + a.Type
	}
	s := "DEFINE FUNCTION fn::" + d.Name + "(" + strings.Join(args, ", ") + ")"
	if d.Returns != "" {
		s += " -> " + d.Returns
	}
	return s + " " + d.Block + comment(d.Comment)
}

func (d *Param) String() string {
	return "DEFINE PARAM $" + d.Name + " VALUE " + d.Value + comment(d.Comment)
}

func (d *Analyzer) String() string {
	s := "DEFINE ANALYZER " + d.Name
	if d.Function != "" {
		s += " FUNCTION fn::" + d.Function
	}
	if len(d.Tokenizers) > 0 {
		s += " TOKENIZERS " + strings.Join(d.Tokenizers, ",")
	}
	if len(d.Filters) > 0 {
		s += " FILTERS " + strings.Join(d.Filters, ",")
	}
	return s + comment(d.Comment)
}

func (d *User) String() string {
	s := "DEFINE USER " + d.Name + " ON " + d.Base.String() + " PASSHASH " + strconv.Quote(d.Hash)
	if len(d.Roles) > 0 {
		s += " ROLES " + strings.ToUpper(strings.Join(d.Roles, ", "))
	}
	if d.Duration > 0 {
		s += " DURATION FOR SESSION " + FormatDuration(d.Duration)
	}
	return s + comment(d.Comment)
}

func (d *Access) String() string {
	s := "DEFINE ACCESS " + d.Name + " ON " + d.Base.String()
	switch d.Type {
	case AccessRecord:
		s += " TYPE RECORD"
		if d.Signup != "" {
			s += " SIGNUP (" + d.Signup + ")"
		}
		if d.Signin != "" {
			s += " SIGNIN (" + d.Signin + ")"
		}
	default:
		s += " TYPE JWT"
		if d.Algorithm != "" {
			s += " ALGORITHM " + d.Algorithm
		}
		if d.Key != "" {
			s += " KEY " + strconv.Quote(d.Key)
		}
	}
	if d.Duration > 0 {
		s += " DURATION FOR SESSION " + FormatDuration(d.Duration)
	}
	return s + comment(d.Comment)
}

func (d *Sequence) String() string {
	return "DEFINE SEQUENCE " + d.Name + " BATCH " + strconv.FormatUint(uint64(d.Batch), 10) +
		" START " + strconv.FormatInt(d.Start, 10)
}

func (c *ChangefeedConfig) clause() string {
	if c == nil {
		return ""
	}
	s := " CHANGEFEED " + FormatDuration(c.Expiry)
	if c.StoreDiff {
		s += " INCLUDE ORIGINAL"
	}
	return s
}

func comment(c string) string {
	if c == "" {
		return ""
	}
	return " COMMENT " + strconv.Quote(c)
}

var durationUnits = []struct {
	unit string
	size time.Duration
}{
	{"w", 7 * 24 * time.Hour},
	{"d", 24 * time.Hour},
	{"h", time.Hour},
	{"m", time.Minute},
	{"s", time.Second},
	{"ms", time.Millisecond},
}

// FormatDuration renders d with the largest units first, e.g. "1d2h" or "90ms".
func FormatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}
	var b strings.Builder
	for _, u := range durationUnits {
		if n := d / u.size; n > 0 {
			b.WriteString(strconv.FormatInt(int64(n), 10))
			b.WriteString(u.unit)
			d -= n * u.size
		}
	}
	if d > 0 {
		b.WriteString(strconv.FormatInt(int64(d), 10) + "ns")
	}
	return b.String()
}
