package conf

import (
	"fmt"
)

// Location is a named point in the static region lookup table.
type Location struct {
	Lat float64
	Lon float64
}

// regionTable maps city name to district name to coordinates. Coordinates
// are district office locations; intensity is evaluated at this point.
var regionTable = map[string]map[string]Location{
	"基隆市": {
		"仁愛區": {Lat: 25.1276, Lon: 121.7392},
		"中正區": {Lat: 25.1417, Lon: 121.7605},
		"七堵區": {Lat: 25.0957, Lon: 121.7133},
	},
	"臺北市": {
		"中正區": {Lat: 25.0324, Lon: 121.5199},
		"大安區": {Lat: 25.0264, Lon: 121.5435},
		"信義區": {Lat: 25.0330, Lon: 121.5654},
		"士林區": {Lat: 25.0884, Lon: 121.5253},
		"北投區": {Lat: 25.1321, Lon: 121.5019},
	},
	"新北市": {
		"板橋區": {Lat: 25.0119, Lon: 121.4625},
		"新店區": {Lat: 24.9676, Lon: 121.5418},
		"淡水區": {Lat: 25.1694, Lon: 121.4408},
	},
	"桃園市": {
		"桃園區": {Lat: 24.9932, Lon: 121.3010},
		"中壢區": {Lat: 24.9654, Lon: 121.2250},
	},
	"新竹市": {
		"東區": {Lat: 24.8016, Lon: 120.9718},
		"北區": {Lat: 24.8095, Lon: 120.9647},
	},
	"臺中市": {
		"西屯區": {Lat: 24.1625, Lon: 120.6402},
		"北屯區": {Lat: 24.1820, Lon: 120.6864},
	},
	"嘉義市": {
		"東區": {Lat: 23.4801, Lon: 120.4585},
		"西區": {Lat: 23.4791, Lon: 120.4372},
	},
	"臺南市": {
		"中西區": {Lat: 22.9926, Lon: 120.1958},
		"東區":  {Lat: 22.9805, Lon: 120.2242},
	},
	"高雄市": {
		"苓雅區": {Lat: 22.6216, Lon: 120.3123},
		"左營區": {Lat: 22.6900, Lon: 120.2945},
	},
	"宜蘭縣": {
		"宜蘭市": {Lat: 24.7520, Lon: 121.7531},
		"羅東鎮": {Lat: 24.6770, Lon: 121.7690},
	},
	"花蓮縣": {
		"花蓮市": {Lat: 23.9769, Lon: 121.6044},
		"玉里鎮": {Lat: 23.3361, Lon: 121.3117},
	},
	"臺東縣": {
		"臺東市": {Lat: 22.7554, Lon: 121.1504},
	},
	"南投縣": {
		"南投市": {Lat: 23.9157, Lon: 120.6869},
		"埔里鎮": {Lat: 23.9651, Lon: 120.9647},
	},
}

// LookupRegion resolves a city and district against the static region table.
func LookupRegion(city, district string) (Location, error) {
	districts, ok := regionTable[city]
	if !ok {
		return Location{}, fmt.Errorf("unknown city %q", city)
	}
	loc, ok := districts[district]
	if !ok {
		return Location{}, fmt.Errorf("unknown district %q in city %q", district, city)
	}
	return loc, nil
}

// TargetLocation resolves the configured region to coordinates.
func (s *Settings) TargetLocation() (Location, error) {
	return LookupRegion(s.Region.City, s.Region.District)
}
