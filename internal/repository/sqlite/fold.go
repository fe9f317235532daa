package sqlite

import (
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// WHY A CUSTOM fold() FUNCTION?
// SQLite's built-in lower() only knows ASCII: lower('Über') is 'Über', so a
// search for "über" would never find it. fold() runs Unicode case folding in
// Go and is registered once for every connection the driver opens. Search
// applies it to both the column and the needle, so "ÜBER", "Über" and "über"
// all meet at the same folded form (and "STRASSE" finds "Straße").
//
// It is deterministic, which lets SQLite treat it like lower() when planning.
const foldFunc = "fold"

func init() {
	if err := sqlite.RegisterDeterministicScalarFunction(foldFunc, 1, fold); err != nil {
		panic(fmt.Sprintf("sqlite: registering %s(): %v", foldFunc, err))
	}
}

// fold case-folds a TEXT or BLOB argument. NULL stays NULL; numbers are
// folded through their text form, as lower() does.
//
// A cases.Caser keeps state between calls, so each call builds its own.
func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return cases.Fold().String(v), nil
	case []byte:
		return cases.Fold().String(string(v)), nil
	default:
		return cases.Fold().String(fmt.Sprint(v)), nil
	}
}
