package chain

// DataItems returns the ordered byte sequences pushed into the transaction's
// data-carrier outputs.
//
// Three strategies are tried in order, each activating only if the previous
// stage yielded zero items:
//  1. byte-level decoding of Raw,
//  2. the provider's pre-decoded OutputScripts,
//  3. a raw-byte scan for the OP_FALSE OP_RETURN pattern.
//
// An empty result means "not a protocol transaction" and is never an error.
func DataItems(tx *Tx) [][]byte {
	if tx == nil {
		return nil
	}

	if len(tx.Raw) > 0 {
		if scripts, err := decodeOutputScripts(tx.Raw); err == nil {
			if items := carrierItems(scripts); len(items) > 0 {
				return items
			}
		}
	}

	if items := carrierItems(tx.OutputScripts); len(items) > 0 {
		return items
	}

	if len(tx.Raw) > 0 {
		if items := scanForCarrier(tx.Raw); len(items) > 0 {
			return items
		}
	}

	return nil
}

// carrierItems collects pushes from every data-carrier script, preserving
// on-chain order across outputs.
func carrierItems(scripts [][]byte) [][]byte {
	var items [][]byte
	for _, script := range scripts {
		if !isDataCarrier(script) {
			continue
		}
		items = append(items, parsePushes(carrierPayload(script))...)
	}
	return items
}
