package dataset

// Windowed splits each trajectory into an observed prefix of history
// channels and a to-predict suffix of forecast channels. avgTerms > 1
// block-averages the data and both time grids; exogenous forecasts keep
// their raw resolution and are NaN-aligned until collate.
type Windowed struct {
	ObservedData       *Trajectories
	DataToPredict      *Trajectories
	AvailableForecasts *Trajectories
	ObservedTP         []float64
	TPToPredict        []float64
}

func NewWindowed(trajs *Trajectories, times []float64, observeSteps, avgTerms int, roles FeatureRoles) *Windowed {
	w := &Windowed{
		ObservedData:  trajs.TimeSlice(0, observeSteps).Channels(roles.Hist),
		DataToPredict: trajs.TimeSlice(observeSteps, trajs.T).Channels(roles.Fcst),
		ObservedTP:    times[:observeSteps],
		TPToPredict:   times[observeSteps:],
	}
	if avgTerms > 1 {
		w.ObservedData = w.ObservedData.AvgPool(avgTerms)
		w.DataToPredict = w.DataToPredict.AvgPool(avgTerms)
		w.ObservedTP = avgPool1d(w.ObservedTP, avgTerms)
		w.TPToPredict = avgPool1d(w.TPToPredict, avgTerms)
	}
	if len(roles.AvailFcst) > 0 {
		w.AvailableForecasts = trajs.TimeSlice(observeSteps, trajs.T).Channels(roles.AvailFcst)
	}
	return w
}

func (w *Windowed) Len() int { return w.ObservedData.N }
