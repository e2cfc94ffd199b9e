package record

import "strings"

// Compare orders a against b under a fixed policy:
//   - a null on either side is incomparable;
//   - numbers, or text that parses as a number on both sides, compare numerically;
//   - a date against a date or date-formatted text compares chronologically;
//   - anything else compares as text, byte-wise. Non-finite floats are held
//     as the text "NaN", "+Inf" or "-Inf" and land here.
//
// The second result is false when the operands are incomparable.
func Compare(a, b Value) (int, bool) {
	if a.IsNull() || b.IsNull() {
		return 0, false
	}

	if an, ok := a.AsNumber(); ok {
		if bn, ok := b.AsNumber(); ok {
			return an.Cmp(bn), true
		}
	}

	if a.kind == KindDate || b.kind == KindDate {
		ad, aok := a.AsDate()
		bd, bok := b.AsDate()
		if aok && bok {
			return ad.Compare(bd), true
		}
	}

	return strings.Compare(a.String(), b.String()), true
}
