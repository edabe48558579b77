package district

// CityAverage holds the city-wide reference figures Compare grades
// districts against.
var CityAverage = struct {
	PriceTrend   float64
	DaysOnMarket int
	MedianPrice  float64 // millions NOK
	AvgSqmPrice  float64
}{
	PriceTrend:   2.4,
	DaysOnMarket: 19,
	MedianPrice:  5.8,
	AvgSqmPrice:  94500,
}

// Oslo returns the district table for Oslo. Names match the BYDELSNAVN
// property of the bundled geography.
func Oslo() *Collection {
	return NewCollection(osloDistricts)
}

var osloDistricts = []District{
	{ID: "oslo", Name: "Oslo (Totalt)", PriceChange: 2.4, AvgDaysOnMarket: 19, PricePerSqm: 94500, MedianPrice: 5850000,
		Description: "Boligmarkedet i Oslo viser stabil vekst over hele linjen, med fortsatt høy etterspørsel i sentrale strøk.",
		Lat:         59.9139, Lng: 10.7522},
	{ID: "gamle-oslo", Name: "Gamle Oslo", PriceChange: 2.6, AvgDaysOnMarket: 17, PricePerSqm: 102000, MedianPrice: 5200000,
		Description: "Bydelen preges av massiv utvikling og stor tiltrekningskraft for unge voksne.",
		Lat:         59.9077, Lng: 10.7788},
	{ID: "grunerlokka", Name: "Grünerløkka", PriceChange: 1.8, AvgDaysOnMarket: 14, PricePerSqm: 105000, MedianPrice: 4950000,
		Description: "Høy omløpshastighet preger det urbane markedet her. Populært for førstegangskjøpere.",
		Lat:         59.9242, Lng: 10.7584},
	{ID: "sagene", Name: "Sagene", PriceChange: 2.1, AvgDaysOnMarket: 16, PricePerSqm: 98000, MedianPrice: 4800000,
		Description: "Stabilt marked med sjarmerende bebyggelse langs Akerselva.",
		Lat:         59.9378, Lng: 10.7584},
	{ID: "st-hanshaugen", Name: "St. Hanshaugen", PriceChange: 2.9, AvgDaysOnMarket: 18, PricePerSqm: 112000, MedianPrice: 6100000,
		Description: "Sentral beliggenhet med mange klassiske bygårder og parker.",
		Lat:         59.9268, Lng: 10.7401},
	{ID: "sentrum", Name: "Sentrum", PriceChange: 3.5, AvgDaysOnMarket: 15, PricePerSqm: 135000, MedianPrice: 5500000,
		Description: "Oslos sentrale kjerneområde med høy etterspørsel og kompakte leiligheter.",
		Lat:         59.9127, Lng: 10.7461},
	{ID: "frogner", Name: "Frogner", PriceChange: 3.2, AvgDaysOnMarket: 22, PricePerSqm: 145000, MedianPrice: 8900000,
		Description: "Landets mest eksklusive bydel med stabilt høye kvadratmeterpriser.",
		Lat:         59.9171, Lng: 10.7061},
	{ID: "ullern", Name: "Ullern", PriceChange: 2.5, AvgDaysOnMarket: 25, PricePerSqm: 125000, MedianPrice: 9500000,
		Description: "Attraktiv bydel i vest med mange eneboliger og nyere leilighetsprosjekter.",
		Lat:         59.9248, Lng: 10.6521},
	{ID: "vestre-aker", Name: "Vestre Aker", PriceChange: 2.2, AvgDaysOnMarket: 28, PricePerSqm: 118000, MedianPrice: 11200000,
		Description: "Preget av villabebyggelse og nærhet til Marka. Stabilt marked.",
		Lat:         59.9547, Lng: 10.6725},
	{ID: "nordre-aker", Name: "Nordre Aker", PriceChange: 2.8, AvgDaysOnMarket: 20, PricePerSqm: 108000, MedianPrice: 8200000,
		Description: "Svært populært område for barnefamilier med gode skoler og grøntarealer.",
		Lat:         59.9622, Lng: 10.7538},
	{ID: "bjerke", Name: "Bjerke", PriceChange: 1.9, AvgDaysOnMarket: 22, PricePerSqm: 82000, MedianPrice: 4600000,
		Description: "Voksende bydel med mye nybygging og god kommunikasjon.",
		Lat:         59.9404, Lng: 10.8172},
	{ID: "grorud", Name: "Grorud", PriceChange: 1.5, AvgDaysOnMarket: 26, PricePerSqm: 68000, MedianPrice: 3800000,
		Description: "Rimeligere inngangsbillett til markedet med gode turmuligheter.",
		Lat:         59.9589, Lng: 10.8845},
	{ID: "stovner", Name: "Stovner", PriceChange: 1.4, AvgDaysOnMarket: 30, PricePerSqm: 62000, MedianPrice: 3650000,
		Description: "Mye for pengene og barnevennlige omgivelser i Groruddalen.",
		Lat:         59.9733, Lng: 10.9239},
	{ID: "alna", Name: "Alna", PriceChange: 1.6, AvgDaysOnMarket: 24, PricePerSqm: 72000, MedianPrice: 4100000,
		Description: "Bydel med variert boligmasse og gode handelsfasiliteter.",
		Lat:         59.9324, Lng: 10.8524},
	{ID: "ostensjo", Name: "Østensjø", PriceChange: 2.3, AvgDaysOnMarket: 19, PricePerSqm: 88000, MedianPrice: 5300000,
		Description: "Etablert bydel med sterkt lokalmiljø og nærhet til Østensjøvannet.",
		Lat:         59.8894, Lng: 10.8306},
	{ID: "nordstrand", Name: "Nordstrand", PriceChange: 3.0, AvgDaysOnMarket: 21, PricePerSqm: 104000, MedianPrice: 8500000,
		Description: "Attraktiv bydel med flott utsikt og nærhet til fjorden.",
		Lat:         59.8624, Lng: 10.7958},
	{ID: "sondre-nordstrand", Name: "Søndre Nordstrand", PriceChange: 1.7, AvgDaysOnMarket: 29, PricePerSqm: 58000, MedianPrice: 3400000,
		Description: "Oslos sørligste bydel med mange rekkehus og grønne lunger.",
		Lat:         59.8335, Lng: 10.8256},
}
