package colors

// RGB is a color triple in the 0-255 range.
type RGB [3]int

// presets maps color names to RGB values. German and English names are
// both part of the recognized vocabulary; the model emits whichever the
// user spoke.
var presets = map[string]RGB{
	// basics
	"rot":     {255, 0, 0},
	"red":     {255, 0, 0},
	"grün":    {0, 255, 0},
	"green":   {0, 255, 0},
	"blau":    {0, 0, 255},
	"blue":    {0, 0, 255},
	"gelb":    {255, 255, 0},
	"yellow":  {255, 255, 0},
	"weiß":    {255, 255, 255},
	"white":   {255, 255, 255},
	"schwarz": {0, 0, 0},
	"black":   {0, 0, 0},

	// warm tones
	"warmweiß":   {255, 244, 229},
	"warm white": {255, 244, 229},
	"orange":     {255, 165, 0},
	"gold":       {255, 215, 0},
	"bernstein":  {255, 191, 0},
	"amber":      {255, 191, 0},
	"koralle":    {255, 127, 80},
	"coral":      {255, 127, 80},
	"lachs":      {250, 128, 114},
	"salmon":     {250, 128, 114},
	"pfirsich":   {255, 218, 185},
	"peach":      {255, 218, 185},
	"apricot":    {251, 206, 177},

	// cool tones
	"kaltweiß":   {200, 220, 255},
	"cool white": {200, 220, 255},
	"cyan":       {0, 255, 255},
	"türkis":     {64, 224, 208},
	"turquoise":  {64, 224, 208},
	"aqua":       {0, 255, 255},
	"teal":       {0, 128, 128},
	"himmelblau": {135, 206, 235},
	"sky blue":   {135, 206, 235},
	"eisblau":    {175, 238, 238},
	"ice blue":   {175, 238, 238},
	"marineblau": {0, 0, 128},
	"navy":       {0, 0, 128},

	// violet / pink
	"lila":     {128, 0, 128},
	"purple":   {128, 0, 128},
	"violett":  {138, 43, 226},
	"violet":   {138, 43, 226},
	"magenta":  {255, 0, 255},
	"pink":     {255, 105, 180},
	"rosa":     {255, 182, 193},
	"rose":     {255, 0, 127},
	"fuchsia":  {255, 0, 255},
	"lavendel": {230, 230, 250},
	"lavender": {230, 230, 250},
	"pflaume":  {221, 160, 221},
	"plum":     {221, 160, 221},
	"orchidee": {218, 112, 214},
	"orchid":   {218, 112, 214},

	// greens
	"mint":         {152, 255, 152},
	"mintgrün":     {152, 255, 152},
	"limette":      {50, 205, 50},
	"lime":         {50, 205, 50},
	"olive":        {128, 128, 0},
	"waldgrün":     {34, 139, 34},
	"forest green": {34, 139, 34},
	"seegrün":      {46, 139, 87},
	"sea green":    {46, 139, 87},
	"smaragd":      {0, 201, 87},
	"emerald":      {0, 201, 87},

	// browns
	"braun":      {139, 69, 19},
	"brown":      {139, 69, 19},
	"schokolade": {210, 105, 30},
	"chocolate":  {210, 105, 30},
	"beige":      {245, 245, 220},
	"sand":       {244, 164, 96},
	"terrakotta": {204, 78, 92},
	"terracotta": {204, 78, 92},

	// scene colors
	"sonnenuntergang": {255, 99, 71},
	"sunset":          {255, 99, 71},
	"sonnenaufgang":   {255, 160, 122},
	"sunrise":         {255, 160, 122},
	"romantisch":      {255, 20, 147},
	"romantic":        {255, 20, 147},
	"party":           {148, 0, 211},
	"relax":           {70, 130, 180},
	"konzentration":   {255, 255, 240},
	"focus":           {255, 255, 240},
	"nachtlicht":      {255, 140, 0},
	"nightlight":      {255, 140, 0},
	"kino":            {25, 25, 112},
	"cinema":          {25, 25, 112},
	"gaming":          {0, 255, 127},
	"natur":           {34, 139, 34},
	"nature":          {34, 139, 34},
	"ozean":           {0, 105, 148},
	"ocean":           {0, 105, 148},
	"wald":            {0, 100, 0},
	"forest":          {0, 100, 0},
	"feuer":           {255, 69, 0},
	"fire":            {255, 69, 0},
}

// temperatures maps named white points to Kelvin.
var temperatures = map[string]int{
	"kerze":         2000,
	"candle":        2000,
	"warmweiß":      2700,
	"warm":          2700,
	"gemütlich":     2700,
	"cozy":          2700,
	"neutral":       4000,
	"normal":        4000,
	"tageslicht":    5500,
	"daylight":      5500,
	"kaltweiß":      6500,
	"cool":          6500,
	"konzentration": 6000,
	"focus":         6000,
}

// ScenePreset bundles the light settings for a named mood.
type ScenePreset struct {
	RGBColor        *RGB
	BrightnessPct   int
	ColorTempKelvin int
}

var scenes = map[string]ScenePreset{
	"sonnenuntergang": {RGBColor: &RGB{255, 99, 71}, BrightnessPct: 60, ColorTempKelvin: 2200},
	"romantisch":      {RGBColor: &RGB{255, 20, 147}, BrightnessPct: 30},
	"party":           {RGBColor: &RGB{148, 0, 211}, BrightnessPct: 100},
	"relax":           {RGBColor: &RGB{70, 130, 180}, BrightnessPct: 40, ColorTempKelvin: 2700},
	"konzentration":   {BrightnessPct: 100, ColorTempKelvin: 6000},
	"nachtlicht":      {RGBColor: &RGB{255, 140, 0}, BrightnessPct: 10},
	"kino":            {RGBColor: &RGB{25, 25, 112}, BrightnessPct: 15},
	"gaming":          {RGBColor: &RGB{0, 255, 127}, BrightnessPct: 80},
	"lesen":           {BrightnessPct: 80, ColorTempKelvin: 4000},
	"morgen":          {BrightnessPct: 70, ColorTempKelvin: 4500},
	"abend":           {BrightnessPct: 50, ColorTempKelvin: 2700},
	"nacht":           {RGBColor: &RGB{255, 100, 50}, BrightnessPct: 5},
}
