package transfer

import (
	"encoding/json"
	"fmt"

	"github.com/PaesslerAG/jsonpath"

	"github.com/r3e-network/jsagent/system/jserr"
)

// Diagnose re-walks a rejected value against a JSONPath expression to
// produce a human-readable pointer to the offending part of a large
// structured argument, for attaching to a KindType/KindRange error's
// message. Acceptors for nested containers (AcceptList, AcceptDictionary,
// AcceptStructInto) don't track a path themselves — they fail fast at the
// first bad element — so this is a second pass run only when an error
// needs to be reported back to a human, not on every transfer.
//
// Grounded on the admin surface's need to surface "why did this argument
// get rejected" diagnostics without threading a path accumulator through
// every acceptor call (PaesslerAG/jsonpath walks the already-exported Go
// value with a path expression instead).
func Diagnose(exported interface{}, path string, cause error) error {
	doc, err := toJSONDocument(exported)
	if err != nil {
		return jserr.Wrap(jserr.KindType, "transfer rejected (diagnosis unavailable)", cause)
	}

	v, err := jsonpath.Get(path, doc)
	if err != nil {
		return jserr.Wrap(jserr.KindType, fmt.Sprintf("transfer rejected at %s (path not found)", path), cause)
	}

	return jserr.Wrap(jserr.KindType, fmt.Sprintf("transfer rejected at %s: %v", path, v), cause)
}

func toJSONDocument(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
