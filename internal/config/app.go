package config

type AppConfig struct {
	Server ServerConfig
	Log    LogConfig
	Store  StoreConfig
	Game   GameConfig
	Push   PushConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	storeCfg, err := LoadStore()
	if err != nil {
		return AppConfig{}, err
	}
	gameCfg, err := LoadGame()
	if err != nil {
		return AppConfig{}, err
	}
	pushCfg, err := LoadPush()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server: serverCfg,
		Log:    logCfg,
		Store:  storeCfg,
		Game:   gameCfg,
		Push:   pushCfg,
	}, nil
}
