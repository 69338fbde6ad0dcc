// Package fonts supplies the text metrics the label geometry depends on.
// The built-in Helvetica table covers the default numbering font; custom
// TrueType fonts are loaded through x/image/font/sfnt.
package fonts

// Metrics measures text for one font at arbitrary sizes.
type Metrics interface {
	// Name is the PostScript name used in font dictionaries.
	Name() string
	// Advance is the width of text rendered at size, in user space units.
	Advance(text string, size float64) float64
	// CapHeight at size, used to center a numeral vertically in its box.
	CapHeight(size float64) float64
}

// helveticaWidths holds the AFM advance widths for characters 32..126 in
// thousandths of an em.
var helveticaWidths = [95]int{
	278, 278, 355, 556, 556, 889, 667, 191, // space ! " # $ % & '
	333, 333, 389, 584, 278, 333, 278, 278, // ( ) * + , - . /
	556, 556, 556, 556, 556, 556, 556, 556, // 0 1 2 3 4 5 6 7
	556, 556, 278, 278, 584, 584, 584, 556, // 8 9 : ; < = > ?
	1015, 667, 667, 722, 722, 667, 611, 778, // @ A B C D E F G
	722, 278, 500, 667, 556, 833, 722, 778, // H I J K L M N O
	667, 778, 722, 667, 611, 722, 667, 944, // P Q R S T U V W
	667, 667, 611, 278, 278, 278, 469, 556, // X Y Z [ \ ] ^ _
	333, 556, 556, 500, 556, 556, 278, 556, // ` a b c d e f g
	556, 222, 222, 500, 222, 833, 556, 556, // h i j k l m n o
	556, 556, 333, 500, 278, 556, 500, 722, // p q r s t u v w
	500, 500, 500, 334, 260, 334, 584, // x y z { | } ~
}

const helveticaCapHeight = 718

type helvetica struct{}

// Helvetica returns metrics for the standard built-in numbering font.
func Helvetica() Metrics { return helvetica{} }

func (helvetica) Name() string { return "Helvetica" }

func (helvetica) Advance(text string, size float64) float64 {
	total := 0
	for _, r := range text {
		if r >= 32 && r <= 126 {
			total += helveticaWidths[r-32]
			continue
		}
		// characters outside the table get an average width
		total += 556
	}
	return float64(total) / 1000 * size
}

func (helvetica) CapHeight(size float64) float64 {
	return helveticaCapHeight / 1000.0 * size
}
