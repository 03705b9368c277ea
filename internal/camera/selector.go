package camera

// initialPreferences は起動時の選択優先順位
var initialPreferences = []struct {
	deviceType DeviceType
	position   Position
}{
	{DeviceTypeDual, PositionBack},       // 背面デュアルカメラ
	{DeviceTypeWideAngle, PositionBack},  // 背面広角カメラ
	{DeviceTypeWideAngle, PositionFront}, // 前面広角カメラ
}

// SelectInitial は起動時に使うデバイスを選ぶ
func SelectInitial(devices []Device) (Device, error) {
	for _, pref := range initialPreferences {
		if d, ok := findDevice(devices, pref.deviceType, pref.position); ok {
			return d, nil
		}
	}
	return Device{}, ErrNoDevice
}

// SelectOpposite は現在のデバイスと反対向きのデバイスを選ぶ
// デバイスが2台未満の場合は検索せずに false を返す
func SelectOpposite(devices []Device, current Device) (Device, bool) {
	if len(devices) < 2 {
		return Device{}, false
	}

	preferred := current.Position.Opposite()
	for _, d := range devices {
		if d.Position == preferred {
			return d, true
		}
	}
	return Device{}, false
}

// findDevice は種類と向きが一致する最初のデバイスを返す
func findDevice(devices []Device, deviceType DeviceType, position Position) (Device, bool) {
	for _, d := range devices {
		if d.Type == deviceType && d.Position == position {
			return d, true
		}
	}
	return Device{}, false
}
