package drivers

import "golang.org/x/sys/windows"

func statfsFreeSpace(path string) (free, total int64, err error) {
	var freeBytes, totalBytes, totalFreeBytes uint64

	pathPtr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, err
	}

	if err := windows.GetDiskFreeSpaceEx(pathPtr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return 0, 0, err
	}

	return int64(freeBytes), int64(totalBytes), nil
}
