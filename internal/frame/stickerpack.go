package frame

// StickerPack is an installed sticker pack, identified globally by PackID.
type StickerPack struct {
	PackID   []byte
	PackKey  []byte
	Title    string
	Author   string
	Stickers []*PackSticker
}

// PackSticker is one sticker of a pack.
type PackSticker struct {
	Emoji string
	ID    uint32
}

const (
	packIDSize  = 16
	packKeySize = 32
)

func (p *StickerPack) validate() error {
	if err := checkLen("sticker pack id", p.PackID, packIDSize, true); err != nil {
		return err
	}
	if err := checkLen("sticker pack key", p.PackKey, packKeySize, true); err != nil {
		return err
	}
	for _, s := range p.Stickers {
		if s == nil {
			return violation("nil sticker")
		}
	}
	return nil
}

func (p *StickerPack) encode(e *encoder) {
	e.bytes(1, p.PackID)
	e.bytes(2, p.PackKey)
	e.string(3, p.Title)
	e.string(4, p.Author)
	for _, s := range p.Stickers {
		e.message(5, func(e *encoder) {
			e.string(1, s.Emoji)
			e.uint32(2, s.ID)
		})
	}
}

func (p *StickerPack) decode(b []byte) error {
	return parse("StickerPack", b, func(f field) (err error) {
		switch f.num {
		case 1:
			p.PackID, err = f.bytes()
		case 2:
			p.PackKey, err = f.bytes()
		case 3:
			p.Title, err = f.string()
		case 4:
			p.Author, err = f.string()
		case 5:
			var msg []byte
			if msg, err = f.message(); err != nil {
				return err
			}
			s := &PackSticker{}
			err = parse("PackSticker", msg, func(f field) (err error) {
				switch f.num {
				case 1:
					s.Emoji, err = f.string()
				case 2:
					s.ID, err = f.uint32()
				}
				return err
			})
			p.Stickers = append(p.Stickers, s)
		}
		return err
	})
}
