package api

// Renderer draws one kind of block. It is bound to a block during
// ClientInit and asked for its textures every time the host packs a
// texture atlas.
type Renderer interface {
	// LoadTextures registers every texture the renderer needs with sink and
	// remembers the chart ids it gets back. It is called once per atlas
	// build, so previously stored ids must be replaced.
	LoadTextures(sink TextureSink) error
}

// TextureSink is handed to renderers while an atlas is being packed.
type TextureSink interface {
	// ChartSize is the width and height, in pixels, of every chart.
	ChartSize() int
	// LoadPNG resolves loc and decodes it into ChartSize×ChartSize RGBA8
	// pixels, row major, 4 bytes per pixel.
	LoadPNG(loc ResourceLocation) ([]byte, error)
	// Register copies pixels into the next free chart and returns its id.
	Register(pixels []byte) (int, error)
}
