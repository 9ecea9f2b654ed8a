package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pizza-dispatch-service/internal/domain"
)

// Get returns the value of an environment variable or a fallback.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func GetInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer, got %q", key, v)
	}
	return n, nil
}

func GetFloat(key string, fallback float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a number, got %q", key, v)
	}
	return f, nil
}

// Chef experience levels and pizza types accepted by the kitchen model.
var (
	ChefExperiences = []string{"junior", "middle", "senior"}
	PizzaTypes      = []string{"ruota_di_carro_napoletana", "napoletana", "contemporanea", "classica"}
)

type ClusteringSettings struct {
	MaxPizzasPerCluster int
	TimeWindowMinutes   int
	// DistanceThreshold is the agglomerative cutoff converted to the
	// provider matrix's native unit (seconds or meters).
	DistanceThreshold float64
	DepotCoordinates  domain.Coordinates
	DepotAddress      domain.DeliveryAddress
}

type KitchenSettings struct {
	Chefs              int
	ChefExperience     string
	ChefCapacity       map[string]int           // pizzas per 120 s prep cycle, by experience
	BakeTimes          map[string]time.Duration // by pizza type
	NumOvens           int
	SingleOvenCapacity int
	PizzaType          string
}

type ProviderSettings struct {
	Provider string
	APIKey   string
	Profile  string
	Metric   string
	Units    string
}

type Settings struct {
	DatabaseURL    string
	RedisAddr      string // empty disables the matrix cache
	Clustering     ClusteringSettings
	Kitchen        KitchenSettings
	Provider       ProviderSettings
	ETAThreshold   time.Duration
	TimeForPayment time.Duration
	MaxRelaxRounds int
}

// Load reads and validates the whole configuration surface. Missing or
// inconsistent required settings fail here, before any run starts.
func Load() (*Settings, error) {
	s := &Settings{}

	s.DatabaseURL = os.Getenv("DATABASE_URL")
	if strings.TrimSpace(s.DatabaseURL) == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}
	s.RedisAddr = os.Getenv("REDIS_ADDR")

	var err error
	if s.Provider, err = LoadProvider(); err != nil {
		return nil, err
	}
	if s.Clustering, err = loadClustering(s.Provider.Metric); err != nil {
		return nil, err
	}
	if s.Kitchen, err = loadKitchen(); err != nil {
		return nil, err
	}

	etaMins, err := GetInt("ETA_THRESHOLD_MINUTES", 10)
	if err != nil {
		return nil, err
	}
	s.ETAThreshold = time.Duration(etaMins) * time.Minute

	paymentSecs, err := GetInt("TIME_FOR_PAYMENT_SECONDS", 120)
	if err != nil {
		return nil, err
	}
	s.TimeForPayment = time.Duration(paymentSecs) * time.Second

	if s.MaxRelaxRounds, err = GetInt("MAX_RELAX_ROUNDS", 3); err != nil {
		return nil, err
	}

	return s, nil
}

// LoadProvider reads and validates the route provider settings alone.
// cmd/dbtool uses it without pulling in the rest of the surface.
func LoadProvider() (ProviderSettings, error) {
	p := ProviderSettings{
		Provider: strings.ToLower(Get("ROUTE_SERVICE_PROVIDER", "openrouteservice")),
		APIKey:   os.Getenv("ORS_API_KEY"),
		Profile:  Get("ORS_PROFILE", "driving-car"),
		Metric:   strings.ToLower(Get("ORS_METRIC", "duration")),
		Units:    strings.ToLower(Get("ORS_UNITS", "m")),
	}
	if p.Metric != "duration" && p.Metric != "distance" {
		return ProviderSettings{}, fmt.Errorf("config: ORS_METRIC must be duration or distance, got %q", p.Metric)
	}
	switch p.Units {
	case "m", "km", "mi":
	default:
		return ProviderSettings{}, fmt.Errorf("config: ORS_UNITS must be m, km or mi, got %q", p.Units)
	}
	return p, nil
}

func loadClustering(metric string) (ClusteringSettings, error) {
	c := ClusteringSettings{}

	var err error
	if c.MaxPizzasPerCluster, err = GetInt("MAX_PIZZAS_PER_CLUSTER", 10); err != nil {
		return c, err
	}
	if c.MaxPizzasPerCluster < 1 {
		return c, fmt.Errorf("config: MAX_PIZZAS_PER_CLUSTER must be positive")
	}
	if c.TimeWindowMinutes, err = GetInt("CLUSTER_TIME_WINDOW_MINUTES", 15); err != nil {
		return c, err
	}
	if c.TimeWindowMinutes < 1 || c.TimeWindowMinutes > 60 {
		return c, fmt.Errorf("config: CLUSTER_TIME_WINDOW_MINUTES must be in 1..60")
	}

	threshold, err := GetFloat("CLUSTER_DISTANCE_THRESHOLD", 120)
	if err != nil {
		return c, err
	}

	// The threshold is unit-free at the API boundary; require an explicit
	// unit and check it against the provider metric. Defaults follow the
	// metric: minutes for duration matrices, meters for distance matrices.
	defaultUnit := "minutes"
	if metric == "distance" {
		defaultUnit = "meters"
	}
	unit := strings.ToLower(Get("CLUSTER_DISTANCE_THRESHOLD_UNIT", defaultUnit))
	switch unit {
	case "minutes":
		if metric != "duration" {
			return c, fmt.Errorf("config: threshold unit minutes requires ORS_METRIC=duration")
		}
		c.DistanceThreshold = threshold * 60
	case "seconds":
		if metric != "duration" {
			return c, fmt.Errorf("config: threshold unit seconds requires ORS_METRIC=duration")
		}
		c.DistanceThreshold = threshold
	case "meters":
		if metric != "distance" {
			return c, fmt.Errorf("config: threshold unit meters requires ORS_METRIC=distance")
		}
		c.DistanceThreshold = threshold
	default:
		return c, fmt.Errorf("config: CLUSTER_DISTANCE_THRESHOLD_UNIT must be minutes, seconds or meters, got %q", unit)
	}

	lonStr := os.Getenv("DEPOT_LON")
	latStr := os.Getenv("DEPOT_LAT")
	if lonStr == "" || latStr == "" {
		return c, fmt.Errorf("config: DEPOT_LON and DEPOT_LAT are required")
	}
	if c.DepotCoordinates.Lon, err = strconv.ParseFloat(lonStr, 64); err != nil {
		return c, fmt.Errorf("config: DEPOT_LON must be a number, got %q", lonStr)
	}
	if c.DepotCoordinates.Lat, err = strconv.ParseFloat(latStr, 64); err != nil {
		return c, fmt.Errorf("config: DEPOT_LAT must be a number, got %q", latStr)
	}

	c.DepotAddress = domain.DeliveryAddress{
		Address:    os.Getenv("DEPOT_ADDRESS"),
		PostalCode: os.Getenv("DEPOT_POSTAL_CODE"),
		City:       os.Getenv("DEPOT_CITY"),
		Country:    os.Getenv("DEPOT_COUNTRY"),
	}
	if c.DepotAddress.Address == "" {
		return c, fmt.Errorf("config: DEPOT_ADDRESS is required")
	}

	return c, nil
}

func loadKitchen() (KitchenSettings, error) {
	k := KitchenSettings{
		ChefCapacity: map[string]int{},
		BakeTimes:    map[string]time.Duration{},
	}

	var err error
	if k.Chefs, err = GetInt("CHEFS", 0); err != nil {
		return k, err
	}
	if k.Chefs < 1 {
		return k, fmt.Errorf("config: CHEFS must be at least 1")
	}

	k.ChefExperience = strings.ToLower(os.Getenv("CHEF_EXPERIENCE"))
	if !contains(ChefExperiences, k.ChefExperience) {
		return k, fmt.Errorf("config: CHEF_EXPERIENCE must be one of %s", strings.Join(ChefExperiences, ", "))
	}

	for _, exp := range ChefExperiences {
		n, err := GetInt("CHEF_CAPACITY__"+strings.ToUpper(exp), 0)
		if err != nil {
			return k, err
		}
		if n > 0 {
			k.ChefCapacity[exp] = n
		}
	}
	if _, ok := k.ChefCapacity[k.ChefExperience]; !ok {
		return k, fmt.Errorf("config: CHEF_CAPACITY__%s is required", strings.ToUpper(k.ChefExperience))
	}

	k.PizzaType = strings.ToLower(os.Getenv("PIZZA_TYPE"))
	if !contains(PizzaTypes, k.PizzaType) {
		return k, fmt.Errorf("config: PIZZA_TYPE must be one of %s", strings.Join(PizzaTypes, ", "))
	}

	for _, pt := range PizzaTypes {
		secs, err := GetInt("BAKE_TIME__"+strings.ToUpper(pt), 0)
		if err != nil {
			return k, err
		}
		if secs > 0 {
			k.BakeTimes[pt] = time.Duration(secs) * time.Second
		}
	}
	if _, ok := k.BakeTimes[k.PizzaType]; !ok {
		return k, fmt.Errorf("config: BAKE_TIME__%s is required", strings.ToUpper(k.PizzaType))
	}

	if k.NumOvens, err = GetInt("NUM_OVENS", 0); err != nil {
		return k, err
	}
	if k.NumOvens < 1 {
		return k, fmt.Errorf("config: NUM_OVENS must be at least 1")
	}
	if k.SingleOvenCapacity, err = GetInt("SINGLE_OVEN_CAPACITY", 0); err != nil {
		return k, err
	}
	if k.SingleOvenCapacity < 1 {
		return k, fmt.Errorf("config: SINGLE_OVEN_CAPACITY must be at least 1")
	}

	return k, nil
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
