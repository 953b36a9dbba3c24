package config

func preset(mutate func(*Config)) *Config {
	cfg := DefaultConfig()
	mutate(cfg)
	return cfg
}

var Presets = map[string]map[string]*Config{
	"sine": {
		"quick": preset(func(c *Config) {
			c.Epochs = 50
			c.Trajectories = 100
			c.RunTimes = 1
			c.Models = "node,lstm,mlp,persistence"
		}),
		"paper": preset(func(c *Config) {
			c.Epochs = 1000
			c.Trajectories = 1000
			c.RunTimes = 5
			c.HiddenUnits = DefaultNODEHidden
			c.Models = "node,latent_node,lstm,mlp,persistence"
		}),
		"anode": preset(func(c *Config) {
			c.Epochs = 1000
			c.Trajectories = 1000
			c.HiddenUnits = DefaultNODEHidden
			c.AugmentDim = 1
			c.Models = "node,persistence"
		}),
	},
	"mfred": {
		"day_ahead": preset(func(c *Config) {
			c.Dataset = "mfred"
			c.ObserveSteps = 288
			c.WindowWidth = 576
			c.AvgTerms = 3
			c.Models = "node,lstm,persistence"
		}),
	},
	"nrel": {
		"wind": preset(func(c *Config) {
			c.Dataset = "nrel"
			c.ObserveSteps = 288
			c.WindowWidth = 576
			c.External = true
			c.Models = "lstm,mlp,persistence"
		}),
	},
}

func GetPreset(dataset, name string) *Config {
	group, ok := Presets[dataset]
	if !ok {
		return nil
	}
	cfg, ok := group[name]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(dataset string) []string {
	group, ok := Presets[dataset]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
