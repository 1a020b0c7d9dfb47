package receipt

import (
	"context"

	"github.com/go-faster/errors"

	"github.com/quickserve/kiosk/internal/domain/settlement"
	"github.com/quickserve/kiosk/internal/domain/venue"
	"github.com/quickserve/kiosk/internal/storage/docstore"
)

var _ settlement.Documenter = (*Issuer)(nil)

// Renderer turns layout lines into document bytes. Implementations must be
// deterministic for a given input.
type Renderer interface {
	Render(lines []Line) ([]byte, error)
	Ext() string
}

// Issuer implements settlement.Documenter: it assembles the receipt layout,
// renders it, and persists the result. Issuing twice for the same order
// produces the same file name and identical content.
type Issuer struct {
	vp       venue.Profile
	renderer Renderer
	store    docstore.Store
}

// NewIssuer creates an Issuer for the venue with the given rendering backend.
func NewIssuer(vp venue.Profile, r Renderer, store docstore.Store) *Issuer {
	return &Issuer{vp: vp, renderer: r, store: store}
}

// Issue renders and stores the receipt for a finalized order.
func (i *Issuer) Issue(ctx context.Context, o settlement.OrderRecord) (settlement.ReceiptArtifact, error) {
	data, err := i.renderer.Render(Assemble(o, i.vp))
	if err != nil {
		return settlement.ReceiptArtifact{}, errors.Wrap(err, "render receipt")
	}

	name := FileName(o, i.renderer.Ext())
	url, err := i.store.Save(ctx, data, name)
	if err != nil {
		return settlement.ReceiptArtifact{}, errors.Wrap(err, "store receipt")
	}

	return settlement.ReceiptArtifact{FileName: name, URL: url}, nil
}
