package brain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/warp/household-engine/generic"
)

// Fingerprint hashes the content of a transaction set, the category natures
// and the month it is evaluated in. Input order does not matter.
//
// The as-of month is part of the hash: crossing a month boundary turns the
// current month into a completed one, which changes the samples.
func Fingerprint(txs []generic.TransactionSample, cats []generic.CategoryMeta, asOf generic.Month) string {
	lines := make([]string, 0, len(txs)+len(cats)+1)
	for _, tx := range txs {
		if !tx.Valid() {
			continue
		}
		lines = append(lines, strings.Join([]string{
			"t",
			tx.ID,
			strconv.FormatInt(tx.Timestamp.UTC().UnixNano(), 10),
			string(tx.Type),
			strconv.FormatInt(tx.AmountCents, 10),
			tx.CategoryID,
			strconv.FormatBool(tx.IsSuperfluous),
		}, "|"))
	}
	for _, c := range cats {
		lines = append(lines, "c|"+c.ID+"|"+string(c.SpendingNature))
	}
	sort.Strings(lines)

	h := xxhash.New()
	for _, line := range lines {
		_, _ = h.WriteString(line)
		_, _ = h.WriteString("\n")
	}
	_, _ = h.WriteString("m|" + asOf.String())

	return fmt.Sprintf("v%d-%016x", FeatureSchemaVersion, h.Sum64())
}

func fingerprintAt(txs []generic.TransactionSample, cats []generic.CategoryMeta, now time.Time, loc *time.Location) string {
	return Fingerprint(txs, cats, generic.MonthOf(now, loc))
}
