package v1

import (
	"net/http"

	"github.com/tinoosan/bank/internal/dictionary"
	"github.com/tinoosan/bank/internal/ledger"
)

// GET /v1/dictionary/variants?variant=
func (s *Server) getVariantsDictionary(w http.ResponseWriter, r *http.Request) {
	out := variantsResponse{Items: []dictionary.VariantDef{}}
	if vs := r.URL.Query().Get("variant"); vs != "" {
		v, err := ledger.ParseVariant(vs)
		if err != nil {
			s.writeDomainErr(w, r, err)
			return
		}
		def, _ := dictionary.Lookup(v)
		out.Items = append(out.Items, def)
	} else {
		out.Items = append(out.Items, dictionary.Variants()...)
	}
	toJSON(w, http.StatusOK, out)
}
